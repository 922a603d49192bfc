// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the analysis/synthesis window shape. Only symmetric
// windows that reach zero at both ends are offered.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Blackman
	BartlettHann
)

func (w WindowFunc) String() string {
	switch w {
	case Hann:
		return "hann"
	case Blackman:
		return "blackman"
	case BartlettHann:
		return "bartletthann"
	default:
		return "unknown"
	}
}

// ParseWindowFunc converts a window name (case-insensitive) to a WindowFunc.
// The empty string selects Hann.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "hann", "hanning":
		return Hann, nil
	case "blackman":
		return Blackman, nil
	case "bartletthann":
		return BartlettHann, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// NewWindow returns n coefficients of the given window computed on backend.
func NewWindow(backend Backend, kind WindowFunc, n int) ([]float64, error) {
	if !IsSupported(n) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFFTSize, n)
	}

	var coeffs []float64
	if backend == GoDSP {
		var err error
		if coeffs, err = goDSPWindow(kind, n); err != nil {
			return nil, err
		}
	} else {
		// gonum windows multiply in place.
		coeffs = make([]float64, n)
		for i := range coeffs {
			coeffs[i] = 1.0
		}
		switch kind {
		case Hann:
			window.Hann(coeffs)
		case Blackman:
			window.Blackman(coeffs)
		case BartlettHann:
			window.BartlettHann(coeffs)
		default:
			return nil, fmt.Errorf("unknown window function %d", kind)
		}
	}

	// Pin the endpoints; cosine sums leave residues around 1e-17.
	coeffs[0] = 0
	coeffs[n-1] = 0
	return coeffs, nil
}

// GainCompensation returns the factor that restores unit gain when frames
// are windowed twice (analysis and synthesis) and overlap-added every hop
// samples: hop / Σ w[n]². For a Hann window at hop N/4 this is close to 2/3.
func GainCompensation(win []float64, hop int) float64 {
	var energy float64
	for _, w := range win {
		energy += w * w
	}
	if energy == 0 || hop <= 0 {
		return 1
	}
	return float64(hop) / energy
}
