package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolveai/log-distributor/internal/registry"
)

func newStates(t *testing.T, weights map[string]float64) []*registry.AnalyzerState {
	t.Helper()
	descriptors := make([]registry.Descriptor, 0, len(weights))
	for id, w := range weights {
		descriptors = append(descriptors, registry.Descriptor{ID: id, Endpoint: "http://" + id, Weight: w})
	}
	reg := registry.New(descriptors)
	return reg.States()
}

func TestSelect_NoAnalyzersOnline_ReturnsNil(t *testing.T) {
	states := newStates(t, map[string]float64{"a1": 0.5})
	states[0].RecordFailure(time.Now(), 1)

	got := Select(states, 0, 1, Config{DeficitThreshold: 1000})
	assert.Nil(t, got)
}

func TestSelect_PrefersAnalyzerFurthestBehindItsWeight(t *testing.T) {
	reg := registry.New([]registry.Descriptor{
		{ID: "light", Endpoint: "http://light", Weight: 0.1},
		{ID: "heavy", Endpoint: "http://heavy", Weight: 0.9},
	})
	states := reg.States()

	// Nothing delivered yet: both analyzers are equally behind in absolute
	// terms, but "heavy" has the larger weight so it should win the
	// minimum-future-deviation comparison for an identical starting point.
	got := Select(states, 0, 10, Config{DeficitThreshold: 1000})
	require.NotNil(t, got)
	assert.Equal(t, "heavy", got.ID())
}

func TestSelect_EmergencyOverrideWhenDeficitExceedsThreshold(t *testing.T) {
	reg := registry.New([]registry.Descriptor{
		{ID: "a1", Endpoint: "http://a1", Weight: 0.5},
		{ID: "a2", Endpoint: "http://a2", Weight: 0.5},
	})
	states := reg.States()
	a1, _ := reg.ForID("a1")
	a2, _ := reg.ForID("a2")

	// a2 has fallen far behind its 0.5 share of a large processed total.
	a1.RecordDelivery(10000)
	a2.RecordDelivery(10)

	got := Select(states, 10010, 1, Config{DeficitThreshold: 100})
	require.NotNil(t, got)
	assert.Equal(t, "a2", got.ID())
}

func TestSelect_SkipsOfflineAnalyzers(t *testing.T) {
	reg := registry.New([]registry.Descriptor{
		{ID: "a1", Endpoint: "http://a1", Weight: 0.5},
		{ID: "a2", Endpoint: "http://a2", Weight: 0.5},
	})
	a1, _ := reg.ForID("a1")
	a1.RecordFailure(time.Now(), 1)
	require.False(t, a1.Online())

	got := Select(reg.States(), 0, 1, Config{DeficitThreshold: 1000})
	require.NotNil(t, got)
	assert.Equal(t, "a2", got.ID())
}
