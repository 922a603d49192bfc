// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"vocalfx/internal/fft"
)

const (
	// LifterCutoff is the number of low-quefrency cepstral coefficients kept
	// on each side when smoothing the log spectrum.
	LifterCutoff = 64

	// MagnitudeFloor keeps the logarithm finite for silent bins.
	MagnitudeFloor = 1e-6
)

// Envelope extracts a smooth spectral envelope by cepstral liftering:
// log magnitudes are inverse transformed, high quefrencies are zeroed, and
// the result is transformed back and exponentiated.
type Envelope struct {
	tr     fft.Transform
	n      int
	cutoff int

	logSpec []complex128 // N
	ceps    []float64    // N
	half    []complex128 // N/2+1
	values  []float64    // N/2+1
}

// NewEnvelope creates an Envelope bound to tr.
func NewEnvelope(tr fft.Transform) *Envelope {
	n := tr.Size()
	cutoff := LifterCutoff
	if cutoff > n/2 {
		cutoff = n / 2
	}
	return &Envelope{
		tr:      tr,
		n:       n,
		cutoff:  cutoff,
		logSpec: make([]complex128, n),
		ceps:    make([]float64, n),
		half:    make([]complex128, n/2+1),
		values:  make([]float64, n/2+1),
	}
}

// Extract computes the envelope of mags (N/2+1 bins). The returned slice
// is owned by the Envelope and valid until the next call.
func (e *Envelope) Extract(mags []float64) []float64 {
	nyq := e.n / 2
	for k := 0; k <= nyq; k++ {
		l := math.Log(math.Max(mags[k], MagnitudeFloor))
		e.logSpec[k] = complex(l, 0)
		if k > 0 && k < nyq {
			e.logSpec[e.n-k] = complex(l, 0)
		}
	}

	e.tr.Inverse(e.ceps, e.logSpec)
	for q := e.cutoff; q <= e.n-e.cutoff; q++ {
		e.ceps[q] = 0
	}
	e.tr.Forward(e.half, e.ceps)

	for k, c := range e.half {
		e.values[k] = math.Exp(real(c))
	}
	return e.values
}

// Values returns the most recently extracted envelope.
func (e *Envelope) Values() []float64 { return e.values }

// At samples the envelope at a fractional bin position with linear
// interpolation, clamped to [0, N/2].
func (e *Envelope) At(pos float64) float64 {
	nyq := e.n / 2
	if pos <= 0 {
		return e.values[0]
	}
	idx := int(pos)
	if idx >= nyq {
		return e.values[nyq]
	}
	frac := pos - float64(idx)
	return e.values[idx]*(1-frac) + e.values[idx+1]*frac
}
