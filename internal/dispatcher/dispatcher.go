// Package dispatcher implements the DispatchPipeline: a bounded work queue,
// a fixed worker pool, and an HTTP client that performs the outbound POST to
// the selected analyzer. Grounded on the teacher's pkg/workerpool (task/
// worker/pool shape, graceful Stop with a drain timeout) and this same
// repository's prior internal/dispatcher/dispatcher.go (the non-blocking
// enqueue-with-fallback idiom at the Handle call site). Unlike the teacher's
// dispatcher, a failed send is never retried or requeued to another sink —
// invariant I2 forbids cross-analyzer retry.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resolveai/log-distributor/internal/counters"
	"github.com/resolveai/log-distributor/internal/dlq"
	"github.com/resolveai/log-distributor/internal/health"
	"github.com/resolveai/log-distributor/internal/metrics"
	"github.com/resolveai/log-distributor/internal/registry"
	"github.com/resolveai/log-distributor/pkg/types"
)

// ErrPoolNotRunning mirrors the teacher's workerpool sentinel; returned by
// Enqueue if called before Start or after Stop.
var ErrPoolNotRunning = errors.New("dispatch pipeline is not running")

// Config carries the pipeline's sizing and timeout tunables (§6 of the spec).
type Config struct {
	QueueCapacity   int
	Workers         int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type workItem struct {
	packet   types.LogPacket
	analyzer *registry.AnalyzerState
}

// Pipeline is the DispatchPipeline: bounded queue + worker pool + HTTP client.
type Pipeline struct {
	config  Config
	logger  *logrus.Logger
	tracker *health.Tracker
	counts  *counters.Counters
	dlq     *dlq.Log
	client  *http.Client

	queue chan workItem

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// running gates Enqueue lock-free. The queue itself is never closed
	// (grounded on the teacher's pkg/workerpool, worker_pool.go:142-196):
	// a goroutine that reads running==true just before Stop flips it can
	// still land its send safely, because there is nothing to panic on.
	// Shutdown is signalled by cancelling ctx instead.
	running atomic.Bool
}

// New builds a Pipeline. It does not start workers until Start is called.
func New(config Config, tracker *health.Tracker, counts *counters.Counters, deadLetters *dlq.Log, logger *logrus.Logger) *Pipeline {
	if config.Workers <= 0 {
		config.Workers = 20
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = 10000
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Pipeline{
		config:  config,
		logger:  logger,
		tracker: tracker,
		counts:  counts,
		dlq:     deadLetters,
		client: &http.Client{
			Timeout: config.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        config.Workers * 2,
				MaxIdleConnsPerHost: config.Workers,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		queue: make(chan workItem, config.QueueCapacity),
	}
}

// Start launches the fixed worker pool. ctx governs the workers' lifetime;
// once it is cancelled each worker sends whatever is already queued and exits.
func (p *Pipeline) Start(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	metrics.DispatchQueueCapacity.Set(float64(p.config.QueueCapacity))

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.WithFields(logrus.Fields{"workers": p.config.Workers, "queue_capacity": p.config.QueueCapacity}).Info("dispatch pipeline started")
}

// Stop cancels the workers' context and waits up to ShutdownTimeout for
// in-flight sends and a final drain pass to finish. The shared queue is
// never closed, grounded on the teacher's pkg/workerpool (worker_pool.go:
// 142-196), which signals shutdown with context cancellation and per-worker
// quit channels rather than closing the task queue, since a producer racing
// a close can panic. Anything still queued when the workers have exited or
// the timeout elapses is abandoned and counted as dropped.
func (p *Pipeline) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("dispatch pipeline shutdown timed out; abandoning remaining queued packets")
	}

	for {
		select {
		case <-p.queue:
			p.counts.IncDropped()
			metrics.PacketsDropped.Inc()
		default:
			return
		}
	}
}

// Enqueue implements the Enqueue contract from §4.4: a non-blocking send
// into the bounded queue, falling back to a synchronous caller-runs send
// when the queue is full. The caller (the ingest goroutine) pays the cost
// of the send itself rather than the packet being silently dropped. The
// running check is a plain atomic load: since Stop never closes p.queue, a
// goroutine that reads running==true a moment before Stop flips it still
// performs a perfectly safe channel send or caller-runs send — at worst the
// packet lands in a queue that nothing drains any more, and it is not
// counted as dropped.
func (p *Pipeline) Enqueue(packet types.LogPacket, analyzer *registry.AnalyzerState) error {
	if !p.running.Load() {
		return ErrPoolNotRunning
	}

	item := workItem{packet: packet, analyzer: analyzer}
	select {
	case p.queue <- item:
		metrics.DispatchQueueDepth.Set(float64(len(p.queue)))
		p.counts.IncQueued()
		metrics.PacketsQueued.Inc()
		return nil
	default:
		p.logger.WithField("packet_id", packet.PacketID).Debug("dispatch queue full, running send on caller goroutine")
		p.send(item)
		return nil
	}
}

// worker drains the shared queue until ctx is cancelled, then makes one
// final non-blocking pass to pick up anything already buffered before
// exiting, the way the teacher's Worker.start selects on taskChan/quit/
// ctx.Done() (worker_pool.go:142-196).
func (p *Pipeline) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case item := <-p.queue:
			metrics.DispatchQueueDepth.Set(float64(len(p.queue)))
			p.send(item)
		case <-ctx.Done():
			for {
				select {
				case item := <-p.queue:
					metrics.DispatchQueueDepth.Set(float64(len(p.queue)))
					p.send(item)
				default:
					return
				}
			}
		}
	}
}

// send performs the worker loop of §4.4: serialize, POST, and on outcome
// update counters, HealthState, and (on failure) the dead-letter audit log.
func (p *Pipeline) send(item workItem) {
	body, err := json.Marshal(item.packet)
	if err != nil {
		p.recordFailure(item, "marshal error: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, item.analyzer.Endpoint(), bytes.NewReader(body))
	if err != nil {
		p.recordFailure(item, "request build error: "+err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	metrics.OutboundSendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.recordFailure(item, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.recordFailure(item, "http status "+resp.Status)
		return
	}

	n := item.packet.MessageCount()
	p.tracker.RecordSuccess(item.analyzer, n)
	p.counts.AddMessagesProcessed(n)
	p.counts.IncProcessed()
	metrics.PacketsProcessed.Inc()
	metrics.TotalMessagesProcessed.Add(float64(n))
	metrics.AnalyzerMessageCount.WithLabelValues(item.analyzer.ID()).Set(float64(item.analyzer.MessageCount()))
	metrics.AnalyzerOnline.WithLabelValues(item.analyzer.ID()).Set(1)
	metrics.AnalyzerConsecutiveFailures.WithLabelValues(item.analyzer.ID()).Set(0)
}

func (p *Pipeline) recordFailure(item workItem, reason string) {
	p.tracker.RecordFailure(item.analyzer)
	p.counts.IncDropped()
	metrics.PacketsDropped.Inc()
	metrics.AnalyzerConsecutiveFailures.WithLabelValues(item.analyzer.ID()).Set(float64(item.analyzer.ConsecutiveFailures()))
	metrics.AnalyzerOnline.WithLabelValues(item.analyzer.ID()).Set(boolToFloat(item.analyzer.Online()))

	p.dlq.Record(dlq.Entry{
		PacketID:   item.packet.PacketID,
		AgentID:    item.packet.AgentID,
		AnalyzerID: item.analyzer.ID(),
		Reason:     reason,
		DroppedAt:  time.Now().UTC(),
	})

	p.logger.WithFields(logrus.Fields{
		"packet_id":   item.packet.PacketID,
		"analyzer_id": item.analyzer.ID(),
		"reason":      reason,
	}).Warn("packet delivery failed")
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
