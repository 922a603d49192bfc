// SPDX-License-Identifier: MIT
package vocoder

// State is the per-stream memory carried between frames. It must be owned
// by exactly one goroutine at a time.
type State struct {
	LastInputPhases      []float64
	LastOutputPhases     []float64
	SynthesisMagnitudes  []float64
	SynthesisFrequencies []float64
	PreviousRatio        float64 // strength-smoothed correction
	GlideRatio           float64 // applied ratio, trails PreviousRatio
}

// NewState allocates a zeroed State sized for cfg.
func NewState(cfg Config) *State {
	bins := cfg.Bins()
	return &State{
		LastInputPhases:      make([]float64, bins),
		LastOutputPhases:     make([]float64, bins),
		SynthesisMagnitudes:  make([]float64, bins),
		SynthesisFrequencies: make([]float64, bins),
		PreviousRatio:        1.0,
		GlideRatio:           1.0,
	}
}

// Reset zeroes all arrays and restores both ratios to 1.
func (s *State) Reset() {
	clear(s.LastInputPhases)
	clear(s.LastOutputPhases)
	clear(s.SynthesisMagnitudes)
	clear(s.SynthesisFrequencies)
	s.PreviousRatio = 1.0
	s.GlideRatio = 1.0
}

func (s *State) fits(bins int) bool {
	return len(s.LastInputPhases) == bins &&
		len(s.LastOutputPhases) == bins &&
		len(s.SynthesisMagnitudes) == bins &&
		len(s.SynthesisFrequencies) == bins
}
