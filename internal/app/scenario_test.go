package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolveai/log-distributor/internal/counters"
	"github.com/resolveai/log-distributor/internal/dispatcher"
	"github.com/resolveai/log-distributor/internal/dlq"
	"github.com/resolveai/log-distributor/internal/health"
	"github.com/resolveai/log-distributor/internal/ingest"
	"github.com/resolveai/log-distributor/internal/registry"
	"github.com/resolveai/log-distributor/internal/selector"
	"github.com/resolveai/log-distributor/pkg/types"
)

func scenarioLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// TestScenario_WarmUpDistribution drives spec.md §8's numbered scenario 1
// end-to-end: four analyzers weighted 0.1/0.2/0.3/0.4 fed 10,000 single-
// message packets through the real Selector, DispatchPipeline, and
// HealthState wired together exactly as App wires them, each POSTing to a
// distinct httptest analyzer stand-in. This exercises P1, the headline
// distribution-accuracy invariant from §1, across the whole chain rather
// than any one component in isolation.
func TestScenario_WarmUpDistribution(t *testing.T) {
	weights := []float64{0.1, 0.2, 0.3, 0.4}
	hits := make([]int32, len(weights))

	descriptors := make([]registry.Descriptor, len(weights))
	for i, w := range weights {
		idx := i
		srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits[idx], 1)
			rw.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)
		descriptors[i] = registry.Descriptor{ID: fmt.Sprintf("analyzer-%d", i), Endpoint: srv.URL, Weight: w}
	}

	logger := scenarioLogger()
	reg := registry.New(descriptors)
	tracker := health.New(health.Config{MaxConsecutiveFailures: 3, OfflineTimeout: time.Minute}, nil)
	counts := counters.New()
	deadLetters := dlq.New(64)

	pipeline := dispatcher.New(dispatcher.Config{
		QueueCapacity:   2000,
		Workers:         16,
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, tracker, counts, deadLetters, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline.Start(ctx)
	defer pipeline.Stop()

	adapter := ingest.New(reg, selector.Config{DeficitThreshold: 1000}, pipeline, counts, deadLetters, logger)

	const totalPackets = 10000
	for i := 0; i < totalPackets; i++ {
		adapter.Distribute(types.LogPacket{
			PacketID: "warmup",
			AgentID:  "agent-1",
			Messages: []types.LogMessage{{Message: "x"}},
		})
	}

	require.Eventually(t, func() bool {
		return counts.Processed() == totalPackets
	}, 10*time.Second, 10*time.Millisecond, "expected all packets to be processed, got %d dropped", counts.Dropped())

	require.Equal(t, int64(0), counts.Dropped())

	for i, w := range weights {
		expected := w * totalPackets
		got := float64(atomic.LoadInt32(&hits[i]))
		tolerance := 0.02 * totalPackets
		assert.InDeltaf(t, expected, got, tolerance, "analyzer %d (weight %.1f) delivered %v messages, want ~%v", i, w, got, expected)
	}
}
