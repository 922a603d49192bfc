// SPDX-License-Identifier: MIT

/*
Package analysis implements the spectral analysis side of the vocoder:
phase unwrapping into precise per-bin frequencies, fundamental detection,
and cepstral formant-envelope extraction.

All types preallocate at construction and are safe for use by exactly one
goroutine. Nothing here allocates per frame.
*/
package analysis

import "math"

const twoPi = 2 * math.Pi

// WrapPhase maps any finite phase into (-π, π].
func WrapPhase(x float64) float64 {
	if x > -math.Pi && x <= math.Pi {
		return x
	}
	r := math.Mod(x+math.Pi, twoPi)
	if r <= 0 {
		r += twoPi
	}
	r -= math.Pi
	if r <= -math.Pi {
		return math.Pi
	}
	return r
}

// Analyzer turns successive spectra into magnitudes and precise
// fractional-bin frequencies using the phase advance between frames.
type Analyzer struct {
	n        int
	hop      int
	expected []float64 // 2π·i·hop/N
	binScale float64   // N / (hop·2π)
}

// NewAnalyzer creates an Analyzer for frame size n and hop size hop.
func NewAnalyzer(n, hop int) *Analyzer {
	bins := n/2 + 1
	a := &Analyzer{
		n:        n,
		hop:      hop,
		expected: make([]float64, bins),
		binScale: float64(n) / (float64(hop) * twoPi),
	}
	for i := range a.expected {
		a.expected[i] = twoPi * float64(i) * float64(hop) / float64(n)
	}
	return a
}

// Bins returns N/2+1.
func (a *Analyzer) Bins() int { return len(a.expected) }

// Analyze reads spectrum (bins 0..N/2) and writes magnitudes and precise
// frequencies in bins. lastPhases holds the previous frame's phases on
// entry and the current ones on return.
func (a *Analyzer) Analyze(spectrum []complex128, lastPhases, mags, freqs []float64) {
	for i, c := range spectrum[:len(a.expected)] {
		re, im := real(c), imag(c)
		mags[i] = math.Sqrt(re*re + im*im)
		phase := math.Atan2(im, re)

		diff := WrapPhase(phase - lastPhases[i] - a.expected[i])
		freqs[i] = float64(i) + diff*a.binScale
		lastPhases[i] = phase
	}
}
