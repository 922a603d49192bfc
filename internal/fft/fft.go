// SPDX-License-Identifier: MIT

// Package fft is the transform and window provider for the vocoder. A
// Transform maps one real frame of N samples to bins 0..N/2 and back; the
// window is a precomputed length-N array shared by analysis and synthesis.
package fft

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"

	"vocalfx/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrUnsupportedFFTSize is returned for sizes outside SupportedSizes.
var ErrUnsupportedFFTSize = errors.New("unsupported fft size")

// SupportedSizes lists the frame sizes the engine is tuned for.
var SupportedSizes = [...]int{512, 1024, 2048, 4096}

// IsSupported reports whether n is one of SupportedSizes.
func IsSupported(n int) bool {
	if !bitint.IsPowerOfTwo(n) {
		return false
	}
	for _, s := range SupportedSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Transform is a fixed-size real transform. Implementations are not safe for
// concurrent use; each consumer owns its own instance.
type Transform interface {
	// Size returns N.
	Size() int
	// Forward writes bins 0..N/2 of the spectrum of src (len N) into dst
	// (len N/2+1) and returns dst.
	Forward(dst []complex128, src []float64) []complex128
	// Inverse writes the real sequence of the Hermitian spectrum src (len N)
	// into dst (len N) and returns dst. Inverse(Forward(x)) == x.
	Inverse(dst []float64, src []complex128) []float64
}

// Backend selects a Transform implementation.
type Backend int

const (
	// Gonum uses gonum's dsp/fourier and never allocates after construction.
	Gonum Backend = iota
	// GoDSP uses mjibson/go-dsp. It allocates per call and is meant for
	// offline rendering.
	GoDSP
)

func (b Backend) String() string {
	switch b {
	case Gonum:
		return "gonum"
	case GoDSP:
		return "godsp"
	default:
		return "unknown"
	}
}

// ParseBackend converts a backend name (case-insensitive) to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "gonum":
		return Gonum, nil
	case "godsp", "go-dsp":
		return GoDSP, nil
	default:
		return Gonum, fmt.Errorf("unknown transform backend: '%s'", name)
	}
}

// New returns a Transform of size n on the given backend.
func New(backend Backend, n int) (Transform, error) {
	switch backend {
	case GoDSP:
		return NewGoDSPTransform(n)
	default:
		return NewTransform(n)
	}
}

// Plan is the gonum Transform.
type Plan struct {
	n     int
	scale float64
	fft   *fourier.FFT
}

var _ Transform = (*Plan)(nil)

// NewTransform builds a gonum-backed Transform of size n.
func NewTransform(n int) (*Plan, error) {
	if !IsSupported(n) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFFTSize, n)
	}
	return &Plan{
		n:     n,
		scale: 1 / float64(n),
		fft:   fourier.NewFFT(n),
	}, nil
}

func (p *Plan) Size() int { return p.n }

func (p *Plan) Forward(dst []complex128, src []float64) []complex128 {
	return p.fft.Coefficients(dst, src)
}

// Inverse reads only bins 0..N/2 of src; the upper half of a Hermitian
// spectrum carries no extra information.
func (p *Plan) Inverse(dst []float64, src []complex128) []float64 {
	dst = p.fft.Sequence(dst, src[:p.n/2+1])
	for i := range dst {
		dst[i] *= p.scale
	}
	return dst
}

// Hermitian expands half (bins 0..N/2) into the full conjugate-symmetric
// spectrum full (len N). DC and Nyquist are forced real.
func Hermitian(full, half []complex128) {
	n := len(full)
	nyquist := n / 2
	full[0] = complex(real(half[0]), 0)
	full[nyquist] = complex(real(half[nyquist]), 0)
	for i := 1; i < nyquist; i++ {
		full[i] = half[i]
		full[n-i] = cmplx.Conj(half[i])
	}
}
