// Package resourcemonitor periodically samples this process's own resource
// usage and publishes it as read-only observability gauges. It never feeds
// the Selector or HealthState: a loaded process is still allowed to route
// packets, it is only reported on. Grounded on the teacher's
// nova_abordagem/metrics.go EnhancedMetrics.systemMetricsLoop (ticker-driven
// sampling of goroutines, memory, and CPU), adapted from the teacher's
// host-wide gopsutil cpu.Times(false) call to a per-process
// gopsutil/v3/process sample so the gauge reflects this distributor, not
// the whole host.
package resourcemonitor

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"

	"github.com/resolveai/log-distributor/internal/metrics"
)

// Monitor samples goroutine count, process CPU percent, and RSS on a fixed
// interval until stopped.
type Monitor struct {
	interval time.Duration
	logger   *logrus.Logger
	proc     *process.Process

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Monitor sampling every 15 seconds. If the current process
// cannot be opened via gopsutil (unsupported platform, restricted
// /proc access), CPU and memory sampling are skipped and only the
// goroutine gauge is updated.
func New(logger *logrus.Logger) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.WithError(err).Warn("resource monitor: process handle unavailable, CPU/memory gauges disabled")
		proc = nil
	}
	return &Monitor{interval: 15 * time.Second, logger: logger, proc: proc}
}

// Start launches the sampling loop in a background goroutine.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

func (m *Monitor) sample() {
	metrics.ProcessGoroutines.Set(float64(runtime.NumGoroutine()))

	if m.proc == nil {
		return
	}
	if pct, err := m.proc.CPUPercent(); err == nil {
		metrics.ProcessCPUPercent.Set(pct)
	}
	if mem, err := m.proc.MemoryInfo(); err == nil && mem != nil {
		metrics.ProcessMemoryRSSBytes.Set(float64(mem.RSS))
	}
}

// Stop cancels the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}
