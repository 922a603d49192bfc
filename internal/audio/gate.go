// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate silences callbacks whose peak amplitude does not exceed a threshold.
// The threshold is stored as float64 bits so the UI can retune it while the
// audio callback reads it.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint64
}

// NewGate returns a gate at threshold; zero leaves it disabled.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.enabled.Store(threshold > 0)
	return g
}

func (g *Gate) Enable()       { g.enabled.Store(true) }
func (g *Gate) Disable()      { g.enabled.Store(false) }
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float64bits(threshold))
}

// Threshold returns the current noise gate threshold.
func (g *Gate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// Open reports whether buf should be processed. A disabled gate is always open.
func (g *Gate) Open(buf []float32) bool {
	if !g.enabled.Load() {
		return true
	}
	return float64(Peak32(buf)) > g.Threshold()
}

// Peak32 returns the largest absolute sample in buf.
func Peak32(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		// Clear the sign bit.
		a := math.Float32frombits(math.Float32bits(s) &^ (1 << 31))
		peak = max(peak, a)
	}
	return peak
}
