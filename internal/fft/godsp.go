// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"

	dspfft "github.com/mjibson/go-dsp/fft"
	dspwindow "github.com/mjibson/go-dsp/window"
)

// GoDSPTransform wraps mjibson/go-dsp. go-dsp returns fresh slices on every
// call, so this backend is not used on the real-time path.
type GoDSPTransform struct {
	n int
}

var _ Transform = (*GoDSPTransform)(nil)

// NewGoDSPTransform builds a go-dsp backed Transform of size n.
func NewGoDSPTransform(n int) (*GoDSPTransform, error) {
	if !IsSupported(n) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFFTSize, n)
	}
	return &GoDSPTransform{n: n}, nil
}

func (g *GoDSPTransform) Size() int { return g.n }

func (g *GoDSPTransform) Forward(dst []complex128, src []float64) []complex128 {
	spectrum := dspfft.FFTReal(src)
	if dst == nil {
		dst = make([]complex128, g.n/2+1)
	}
	copy(dst, spectrum[:g.n/2+1])
	return dst
}

// Inverse uses the full spectrum; go-dsp normalizes IFFT by N.
func (g *GoDSPTransform) Inverse(dst []float64, src []complex128) []float64 {
	seq := dspfft.IFFT(src[:g.n])
	if dst == nil {
		dst = make([]float64, g.n)
	}
	for i, c := range seq {
		dst[i] = real(c)
	}
	return dst
}

// goDSPWindow builds the window coefficients with go-dsp. Only the windows
// go-dsp provides with zero endpoints are accepted.
func goDSPWindow(kind WindowFunc, n int) ([]float64, error) {
	switch kind {
	case Hann:
		return dspwindow.Hann(n), nil
	case Blackman:
		return dspwindow.Blackman(n), nil
	default:
		return nil, fmt.Errorf("window %s is not available on the %s backend", kind, GoDSP)
	}
}
