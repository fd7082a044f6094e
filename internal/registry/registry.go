// Package registry holds the fixed table of analyzer descriptors and their
// mutable runtime state, grounded on the Java original's AnalyzerInfo map
// (DistributorServiceImpl.analyzerInfoMap) and generalized from the
// teacher's circuit-breaker-per-dependency shape into an atomic,
// lock-free per-analyzer record.
package registry

import (
	"sync/atomic"
	"time"

	"github.com/resolveai/log-distributor/pkg/types"
)

// AnalyzerState is one analyzer's mutable runtime state. Every field is an
// atomic scalar so the selector (reader), the dispatch workers (writers on
// success/failure), and the recovery sweeper (writer on promotion) never
// contend on a lock. lastFailureNano stores UnixNano; zero means "never".
type AnalyzerState struct {
	descriptor descriptor

	messageCount        atomic.Int64
	consecutiveFailures atomic.Int64
	lastFailureNano     atomic.Int64
	online              atomic.Bool
}

type descriptor struct {
	id       string
	endpoint string
	weight   float64
}

// ID returns the analyzer's fixed identifier.
func (s *AnalyzerState) ID() string { return s.descriptor.id }

// Endpoint returns the fixed POST destination for this analyzer.
func (s *AnalyzerState) Endpoint() string { return s.descriptor.endpoint }

// Weight returns the fixed target proportion for this analyzer.
func (s *AnalyzerState) Weight() float64 { return s.descriptor.weight }

// MessageCount returns the current delivered-message count.
func (s *AnalyzerState) MessageCount() int64 { return s.messageCount.Load() }

// Online reports whether the analyzer is currently eligible for selection.
func (s *AnalyzerState) Online() bool { return s.online.Load() }

// ConsecutiveFailures returns the current failure streak.
func (s *AnalyzerState) ConsecutiveFailures() int64 { return s.consecutiveFailures.Load() }

// LastFailureTime returns the timestamp of the most recent failure, or the
// zero time if none has been recorded yet.
func (s *AnalyzerState) LastFailureTime() time.Time {
	nano := s.lastFailureNano.Load()
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}

// RecordDelivery is called only from DispatchPipeline's success path: it
// charges n delivered messages to this analyzer and resets its failure
// streak, promoting it back Online if it had been Offline. A successful
// send is itself evidence of recovery (see RecoverySweeper for the other path).
func (s *AnalyzerState) RecordDelivery(n int64) {
	s.messageCount.Add(n)
	s.consecutiveFailures.Store(0)
	s.online.CompareAndSwap(false, true)
}

// RecordFailure increments the failure streak, stamps the failure time, and
// transitions Online -> Offline once the streak reaches maxConsecutiveFailures.
func (s *AnalyzerState) RecordFailure(now time.Time, maxConsecutiveFailures int64) {
	s.lastFailureNano.Store(now.UnixNano())
	failures := s.consecutiveFailures.Add(1)
	if failures >= maxConsecutiveFailures {
		s.online.CompareAndSwap(true, false)
	}
}

// TryRecover promotes the analyzer Online and zeroes its failure streak if
// it is currently Offline and its cooldown has elapsed. Returns true if it
// performed the promotion. Idempotent with a concurrent RecordDelivery.
func (s *AnalyzerState) TryRecover(now time.Time, offlineTimeout time.Duration) bool {
	if s.online.Load() {
		return false
	}
	lastFailure := s.LastFailureTime()
	if lastFailure.IsZero() || now.Sub(lastFailure) <= offlineTimeout {
		return false
	}
	if s.online.CompareAndSwap(false, true) {
		s.consecutiveFailures.Store(0)
		return true
	}
	return false
}

// AnalyzerRegistry is the immutable-after-init enumeration of analyzers. It
// is safe for concurrent use by many readers and writers; membership never
// changes after New returns.
type AnalyzerRegistry struct {
	order []*AnalyzerState
	index map[string]*AnalyzerState
}

// New builds a registry from a fixed, ordered set of descriptors. Iteration
// order (and therefore the selector's tie-break order) is registration order.
func New(descriptors []Descriptor) *AnalyzerRegistry {
	r := &AnalyzerRegistry{
		order: make([]*AnalyzerState, 0, len(descriptors)),
		index: make(map[string]*AnalyzerState, len(descriptors)),
	}
	for _, d := range descriptors {
		state := &AnalyzerState{descriptor: descriptor{id: d.ID, endpoint: d.Endpoint, weight: d.Weight}}
		state.online.Store(true)
		r.order = append(r.order, state)
		r.index[d.ID] = state
	}
	return r
}

// Descriptor is the caller-facing constructor input; kept distinct from
// AnalyzerState so registry construction never exposes mutable internals.
type Descriptor struct {
	ID       string
	Endpoint string
	Weight   float64
}

// ForID returns the runtime state handle for an analyzer id, or ok=false if
// no such analyzer was configured.
func (r *AnalyzerRegistry) ForID(id string) (*AnalyzerState, bool) {
	s, ok := r.index[id]
	return s, ok
}

// States returns the registration-ordered list of analyzer state handles.
// Callers iterate this directly for the selector's hot path instead of
// allocating a snapshot on every call.
func (r *AnalyzerRegistry) States() []*AnalyzerState {
	return r.order
}

// Len reports how many analyzers are configured.
func (r *AnalyzerRegistry) Len() int { return len(r.order) }

// Snapshot returns a point-in-time, non-blocking view of every analyzer.
// Values need not be mutually consistent across analyzers; each field is
// read atomically on its own.
func (r *AnalyzerRegistry) Snapshot() []types.AnalyzerView {
	views := make([]types.AnalyzerView, len(r.order))
	for i, s := range r.order {
		views[i] = types.AnalyzerView{
			ID:                  s.ID(),
			Endpoint:            s.Endpoint(),
			Weight:              s.Weight(),
			MessageCount:        s.MessageCount(),
			Online:              s.Online(),
			ConsecutiveFailures: s.ConsecutiveFailures(),
		}
	}
	return views
}
