// Package selector implements the weighted deviation-minimization choice
// with deficit-driven emergency catch-up, a direct translation of the Java
// original's DistributorServiceImpl.findBestAnalyzerOptimized into a pure
// Go function over a registry snapshot.
package selector

import (
	"math"

	"github.com/resolveai/log-distributor/internal/registry"
)

// DeficitThreshold is the Phase B override trigger, in messages. Passed in
// by the caller (sourced from config) rather than hardcoded, but the Java
// original's default of 1000 is this field's zero-value replacement at the
// config layer.
type Config struct {
	DeficitThreshold float64
}

// Select implements Phase A (deviation minimization) and Phase B (deficit
// override) over the registration-ordered analyzer states, for a packet
// carrying messageCount messages. It reads only atomic state and mutates
// nothing. Returns nil if no analyzer is Online.
func Select(states []*registry.AnalyzerState, totalMessagesProcessed int64, messageCount int64, cfg Config) *registry.AnalyzerState {
	var best *registry.AnalyzerState
	minDeviation := math.MaxFloat64

	var mostDeficit *registry.AnalyzerState
	maxDeficit := 0.0

	total := float64(totalMessagesProcessed)
	m := float64(messageCount)

	for _, s := range states {
		if !s.Online() {
			continue
		}
		weight := s.Weight()
		count := float64(s.MessageCount())

		// Phase A: deviation if this packet were routed here.
		futureTotal := total + m
		futureIdeal := futureTotal * weight
		futureCount := count + m
		futureDeviation := math.Abs(futureCount - futureIdeal)
		if futureDeviation < minDeviation {
			minDeviation = futureDeviation
			best = s
		}

		// Phase B: how far behind is this analyzer right now.
		currentIdeal := total * weight
		currentDeficit := currentIdeal - count
		if currentDeficit > maxDeficit {
			maxDeficit = currentDeficit
			mostDeficit = s
		}
	}

	if mostDeficit != nil && maxDeficit > cfg.DeficitThreshold {
		return mostDeficit
	}
	return best
}
