// SPDX-License-Identifier: MIT
package vocoder

import (
	"math"

	"vocalfx/internal/analysis"
	"vocalfx/internal/fft"
)

const (
	// LimitThreshold is the level above which SoftLimit bends the signal.
	LimitThreshold = 0.95
	limitKnee      = 0.05
)

// SoftLimit leaves |x| <= 0.95 untouched and compresses larger values
// towards ±1 so output never exceeds full scale.
func SoftLimit(x float64) float64 {
	a := math.Abs(x)
	if a <= LimitThreshold {
		return x
	}
	return math.Copysign(LimitThreshold-limitKnee*math.Exp(-a), x)
}

// synthesizePhases advances each output phase by the synthesis frequency
// and builds the half spectrum in p.spec from the synthesis magnitudes.
func (p *Processor) synthesizePhases(st *State) {
	for i, sf := range st.SynthesisFrequencies {
		inc := (sf-float64(i))*p.phaseStep + float64(i)*p.phaseStep
		ph := analysis.WrapPhase(st.LastOutputPhases[i] + inc)
		st.LastOutputPhases[i] = ph

		m := st.SynthesisMagnitudes[i]
		sin, cos := math.Sincos(ph)
		p.spec[i] = complex(m*cos, m*sin)
	}
}

// inverse expands p.spec to a Hermitian spectrum and writes its real
// sequence into p.out.
func (p *Processor) inverse() {
	fft.Hermitian(p.full, p.spec)
	p.tr.Inverse(p.out, p.full)
}

// render windows p.out, applies gain compensation and the soft limiter,
// and writes the frame to dst.
func (p *Processor) render(dst []float64) {
	for i, v := range p.out {
		dst[i] = SoftLimit(v * p.win[i] * p.gain)
	}
}
