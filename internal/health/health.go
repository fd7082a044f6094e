// Package health implements the per-analyzer Online/Offline state machine,
// generalized from the teacher's pkg/circuit_breaker (Closed/Open/HalfOpen)
// down to the two states this domain needs, and driven by compare-and-set
// atomics on registry.AnalyzerState rather than a mutex, per the
// no-ambient-locks design note.
package health

import (
	"time"

	"github.com/resolveai/log-distributor/internal/registry"
)

// Config carries the two tunables that drive the state machine, grounded on
// the Java original's MAX_CONSECUTIVE_FAILURES / OFFLINE_TIMEOUT constants.
type Config struct {
	MaxConsecutiveFailures int64
	OfflineTimeout         time.Duration
}

// Tracker applies HealthState transitions against analyzer runtime state.
// It holds no per-analyzer data of its own; all mutable state lives in the
// registry.AnalyzerState values it is given, which own the atomics.
type Tracker struct {
	config Config
	clock  func() time.Time
}

// New builds a Tracker. A nil clock defaults to time.Now, overridden in
// tests that need deterministic recovery timing.
func New(config Config, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{config: config, clock: clock}
}

// RecordSuccess resets the failure streak and, if the analyzer was Offline,
// promotes it back Online.
func (t *Tracker) RecordSuccess(s *registry.AnalyzerState, messages int64) {
	s.RecordDelivery(messages)
}

// RecordFailure increments the failure streak and transitions Online ->
// Offline once the streak reaches the configured threshold.
func (t *Tracker) RecordFailure(s *registry.AnalyzerState) {
	s.RecordFailure(t.clock(), t.config.MaxConsecutiveFailures)
}

// Sweep promotes every Offline analyzer whose cooldown has elapsed back to
// Online and zeroes its failure streak. Called only by the RecoverySweeper;
// idempotent with respect to a concurrent RecordSuccess on the same analyzer.
func (t *Tracker) Sweep(states []*registry.AnalyzerState) (promoted []string) {
	now := t.clock()
	for _, s := range states {
		if s.TryRecover(now, t.config.OfflineTimeout) {
			promoted = append(promoted, s.ID())
		}
	}
	return promoted
}
