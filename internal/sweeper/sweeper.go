// Package sweeper implements the RecoverySweeper: a periodic tick that
// promotes Offline analyzers back Online after their cooldown elapses.
// Grounded on the Java original's @Scheduled(fixedRate = 5000)
// checkAnalyzerHealth method, translated to a time.Ticker loop in the
// teacher's graceful-goroutine-with-context-cancellation idiom.
package sweeper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resolveai/log-distributor/internal/health"
	"github.com/resolveai/log-distributor/internal/registry"
)

// Sweeper runs health.Tracker.Sweep on a fixed interval until stopped.
type Sweeper struct {
	interval time.Duration
	registry *registry.AnalyzerRegistry
	tracker  *health.Tracker
	logger   *logrus.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Sweeper at the configured SWEEP_INTERVAL.
func New(interval time.Duration, reg *registry.AnalyzerRegistry, tracker *health.Tracker, logger *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sweeper{interval: interval, registry: reg, tracker: tracker, logger: logger}
}

// Start launches the sweeper's ticker loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Sweeper) tick() {
	promoted := s.tracker.Sweep(s.registry.States())
	for _, id := range promoted {
		s.logger.WithField("analyzer_id", id).Info("analyzer recovered, promoted back online")
	}
}

// Stop cancels the ticker loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}
