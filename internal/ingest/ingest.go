// Package ingest is the IngestAdapter boundary (§4.6): decodes an incoming
// packet, calls the Selector, enqueues into the DispatchPipeline, and
// returns an accepted/rejected indicator. Routes and response shapes are
// grounded on the Java original's DistributorController
// (GET /api/v1/health -> "Distributor is online.\n",
// POST /api/v1/distribute -> 202 empty body) and on the teacher's
// gorilla/mux-based internal/app/app.go JSON status-handler idiom.
package ingest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/resolveai/log-distributor/internal/counters"
	"github.com/resolveai/log-distributor/internal/dlq"
	"github.com/resolveai/log-distributor/internal/metrics"
	"github.com/resolveai/log-distributor/internal/registry"
	"github.com/resolveai/log-distributor/internal/selector"
	"github.com/resolveai/log-distributor/pkg/types"
)

// Enqueuer is the subset of *dispatcher.Pipeline the adapter depends on,
// declared here so ingest does not import dispatcher's worker internals.
type Enqueuer interface {
	Enqueue(packet types.LogPacket, analyzer *registry.AnalyzerState) error
}

// Adapter wires the HTTP surface to the routing engine.
type Adapter struct {
	registry     *registry.AnalyzerRegistry
	selectorConf selector.Config
	pipeline     Enqueuer
	counts       *counters.Counters
	deadLetters  *dlq.Log
	logger       *logrus.Logger
}

// New builds an Adapter.
func New(reg *registry.AnalyzerRegistry, selectorConf selector.Config, pipeline Enqueuer, counts *counters.Counters, deadLetters *dlq.Log, logger *logrus.Logger) *Adapter {
	return &Adapter{registry: reg, selectorConf: selectorConf, pipeline: pipeline, counts: counts, deadLetters: deadLetters, logger: logger}
}

// Router builds the gorilla/mux router exposing the ingest, health, and
// status endpoints on one HTTP server.
func (a *Adapter) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/distribute", a.handleDistribute).Methods(http.MethodPost)
	api.HandleFunc("/logs", a.handleDistribute).Methods(http.MethodPost)
	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)
	return r
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Distributor is online.\n"))
}

func (a *Adapter) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var packet types.LogPacket
	if err := json.NewDecoder(r.Body).Decode(&packet); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}
	if len(packet.Messages) == 0 {
		http.Error(w, "messages must be a non-empty array", http.StatusBadRequest)
		return
	}
	packet.ApplyDefaults()

	a.Distribute(packet)
	w.WriteHeader(http.StatusAccepted)
}

// Distribute implements the core IngestAdapter contract and is exported so
// it can be driven directly from tests and benchmarks without an HTTP round trip.
func (a *Adapter) Distribute(packet types.LogPacket) {
	a.counts.IncReceived()
	metrics.PacketsReceived.Inc()

	target := selector.Select(a.registry.States(), a.counts.TotalMessages(), packet.MessageCount(), a.selectorConf)
	if target == nil {
		a.counts.IncDropped()
		metrics.PacketsDropped.Inc()
		a.deadLetters.Record(dlq.Entry{
			PacketID:  packet.PacketID,
			AgentID:   packet.AgentID,
			Reason:    "no online analyzer available",
			DroppedAt: time.Now().UTC(),
		})
		a.logger.WithField("packet_id", packet.PacketID).Warn("no online analyzer available, dropping packet")
		return
	}

	if err := a.pipeline.Enqueue(packet, target); err != nil {
		a.counts.IncDropped()
		metrics.PacketsDropped.Inc()
		a.logger.WithError(err).WithField("packet_id", packet.PacketID).Error("failed to enqueue packet")
	}
}

func (a *Adapter) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := types.DistributorStats{
		PacketsReceived:        a.counts.Received(),
		PacketsQueued:          a.counts.Queued(),
		PacketsProcessed:       a.counts.Processed(),
		PacketsDropped:         a.counts.Dropped(),
		TotalMessagesProcessed: a.counts.TotalMessages(),
		Analyzers:              a.registry.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		types.DistributorStats
		RecentDrops []dlq.Entry `json:"recentDrops"`
	}{
		DistributorStats: stats,
		RecentDrops:      a.deadLetters.Recent(),
	})
}
