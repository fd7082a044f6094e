package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *AnalyzerRegistry {
	return New([]Descriptor{
		{ID: "a1", Endpoint: "http://localhost:8081/analyze", Weight: 0.1},
		{ID: "a2", Endpoint: "http://localhost:8082/analyze", Weight: 0.4},
	})
}

func TestNew_AllAnalyzersStartOnline(t *testing.T) {
	reg := newTestRegistry()
	require.Equal(t, 2, reg.Len())
	for _, s := range reg.States() {
		assert.True(t, s.Online())
		assert.Equal(t, int64(0), s.MessageCount())
	}
}

func TestForID_FoundAndNotFound(t *testing.T) {
	reg := newTestRegistry()
	s, ok := reg.ForID("a1")
	require.True(t, ok)
	assert.Equal(t, "a1", s.ID())
	assert.Equal(t, 0.1, s.Weight())

	_, ok = reg.ForID("missing")
	assert.False(t, ok)
}

func TestRecordDelivery_IncrementsCountAndClearsFailures(t *testing.T) {
	s, _ := newTestRegistry().ForID("a1")
	s.RecordFailure(time.Now(), 3)
	require.Equal(t, int64(1), s.ConsecutiveFailures())

	s.RecordDelivery(5)
	assert.Equal(t, int64(5), s.MessageCount())
	assert.Equal(t, int64(0), s.ConsecutiveFailures())
	assert.True(t, s.Online())
}

func TestRecordFailure_TripsOfflineAtThreshold(t *testing.T) {
	s, _ := newTestRegistry().ForID("a1")
	now := time.Now()
	s.RecordFailure(now, 3)
	s.RecordFailure(now, 3)
	assert.True(t, s.Online())

	s.RecordFailure(now, 3)
	assert.False(t, s.Online())
	assert.Equal(t, int64(3), s.ConsecutiveFailures())
}

func TestTryRecover_RespectsOfflineTimeout(t *testing.T) {
	s, _ := newTestRegistry().ForID("a1")
	now := time.Now()
	s.RecordFailure(now, 1)
	require.False(t, s.Online())

	assert.False(t, s.TryRecover(now.Add(1*time.Second), 30*time.Second))
	assert.True(t, s.TryRecover(now.Add(31*time.Second), 30*time.Second))
	assert.True(t, s.Online())
	assert.Equal(t, int64(0), s.ConsecutiveFailures())
}

func TestTryRecover_NoOpWhenAlreadyOnline(t *testing.T) {
	s, _ := newTestRegistry().ForID("a1")
	assert.False(t, s.TryRecover(time.Now(), 0))
}

func TestSnapshot_ReflectsCurrentState(t *testing.T) {
	reg := newTestRegistry()
	s, _ := reg.ForID("a2")
	s.RecordDelivery(10)

	views := reg.Snapshot()
	require.Len(t, views, 2)
	var a2 *string
	for i := range views {
		if views[i].ID == "a2" {
			a2 = &views[i].ID
			assert.Equal(t, int64(10), views[i].MessageCount)
			assert.True(t, views[i].Online)
		}
	}
	require.NotNil(t, a2)
}
