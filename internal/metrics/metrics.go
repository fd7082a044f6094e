// Package metrics publishes the counters and per-analyzer gauges named in
// the spec as Prometheus metrics, following the teacher's
// internal/metrics/metrics.go idiom of package-level promauto collectors
// plus a small Server wrapping promhttp.Handler on its own port.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_packets_received_total",
		Help: "Total log packets received on the ingest endpoint.",
	})
	PacketsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_packets_queued_total",
		Help: "Total log packets accepted into the dispatch queue.",
	})
	PacketsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_packets_processed_total",
		Help: "Total log packets successfully delivered to an analyzer.",
	})
	PacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_packets_dropped_total",
		Help: "Total log packets dropped (no target, send failure, pipeline not running, or abandoned at shutdown).",
	})
	TotalMessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_messages_processed_total",
		Help: "Total log messages successfully delivered, summed across analyzers.",
	})

	AnalyzerOnline = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "distributor_analyzer_online",
		Help: "1 if the analyzer is Online, 0 if Offline.",
	}, []string{"analyzer_id"})

	AnalyzerMessageCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "distributor_analyzer_message_count",
		Help: "Messages delivered to this analyzer so far.",
	}, []string{"analyzer_id"})

	AnalyzerConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "distributor_analyzer_consecutive_failures",
		Help: "Current consecutive-failure streak for this analyzer.",
	}, []string{"analyzer_id"})

	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_dispatch_queue_depth",
		Help: "Current number of packets waiting in the dispatch queue.",
	})

	DispatchQueueCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_dispatch_queue_capacity",
		Help: "Configured dispatch queue capacity.",
	})

	OutboundSendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "distributor_outbound_send_duration_seconds",
		Help:    "Latency of outbound POSTs to analyzer endpoints.",
		Buckets: prometheus.DefBuckets,
	})

	ProcessGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_process_goroutines",
		Help: "Current goroutine count, sampled by the resource monitor.",
	})

	ProcessCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_process_cpu_percent",
		Help: "Process CPU utilization percentage, sampled by the resource monitor.",
	})

	ProcessMemoryRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_process_memory_rss_bytes",
		Help: "Process resident set size in bytes, sampled by the resource monitor.",
	})
)

// Server wraps a dedicated metrics HTTP listener, mirroring the teacher's
// MetricsServer (separate port from the ingest API).
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer builds a metrics server bound to addr, exposing /metrics and /health.
func NewServer(addr string, logger *logrus.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Start launches the listener in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()
}

// Stop shuts the listener down within the given timeout.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
