// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"testing"

	"vocalfx/internal/fft"
	"vocalfx/pkg/utils"
)

func TestWrapPhase(t *testing.T) {
	inputs := []float64{
		0, 1, -1, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi,
		2 * math.Pi, 7.5, -7.5, 1000.25, -1000.25, 1e6*math.Pi + 0.3,
	}
	for _, x := range inputs {
		t.Run(fmt.Sprintf("%g", x), func(t *testing.T) {
			got := WrapPhase(x)
			if got <= -math.Pi || got > math.Pi {
				t.Fatalf("WrapPhase(%v) = %v, outside (-π, π]", x, got)
			}
			// Same angle modulo 2π.
			if d := math.Abs(math.Remainder(got-x, twoPi)); d > 1e-6 {
				t.Errorf("WrapPhase(%v) = %v changes the angle by %v", x, got, d)
			}
		})
	}
	if WrapPhase(-math.Pi) != math.Pi {
		t.Errorf("WrapPhase(-π) = %v, want π", WrapPhase(-math.Pi))
	}
}

func TestFindFundamental(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want int
	}{
		{"empty", nil, 0},
		{"all zero", make([]float64, 16), 0},
		{"single peak", []float64{0, 0.2, 3, 0.1}, 2},
		{"tie resolves low", []float64{0, 5, 1, 5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindFundamental(tt.in); got != tt.want {
				t.Errorf("FindFundamental(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnalyzerPreciseFrequency(t *testing.T) {
	const (
		n    = 1024
		hop  = n / 4
		sr   = 48000.0
		bin  = 32.3
		freq = bin * sr / n
	)
	tr, err := fft.NewTransform(n)
	if err != nil {
		t.Fatal(err)
	}
	win, err := fft.NewWindow(fft.Gonum, fft.Hann, n)
	if err != nil {
		t.Fatal(err)
	}
	signal := utils.GenerateSineWave(n+hop, sr, freq, 0.5)

	a := NewAnalyzer(n, hop)
	last := make([]float64, a.Bins())
	mags := make([]float64, a.Bins())
	freqs := make([]float64, a.Bins())
	frame := make([]float64, n)
	spec := make([]complex128, a.Bins())

	for _, start := range []int{0, hop} {
		for i := range frame {
			frame[i] = signal[start+i] * win[i]
		}
		tr.Forward(spec, frame)
		a.Analyze(spec, last, mags, freqs)
	}

	peak := FindFundamental(mags)
	if peak != 32 {
		t.Fatalf("peak bin = %d, want 32", peak)
	}
	for _, k := range []int{32, 33} {
		if math.Abs(freqs[k]-bin) > 0.01 {
			t.Errorf("freqs[%d] = %v, want %v", k, freqs[k], bin)
		}
	}
}

func TestEnvelopeFlatSpectrum(t *testing.T) {
	tr, err := fft.NewTransform(512)
	if err != nil {
		t.Fatal(err)
	}
	env := NewEnvelope(tr)
	mags := make([]float64, 257)
	for i := range mags {
		mags[i] = 0.5
	}
	got := env.Extract(mags)
	for i, v := range got {
		if math.Abs(v-0.5) > 1e-9 {
			t.Fatalf("envelope[%d] = %v, want 0.5", i, v)
		}
	}

	for i := range mags {
		mags[i] = 0
	}
	got = env.Extract(mags)
	if math.Abs(got[100]-MagnitudeFloor) > 1e-15 {
		t.Errorf("silent envelope = %v, want floor %v", got[100], MagnitudeFloor)
	}
}

func TestEnvelopeSmoothsHarmonics(t *testing.T) {
	tr, err := fft.NewTransform(1024)
	if err != nil {
		t.Fatal(err)
	}
	env := NewEnvelope(tr)
	mags := make([]float64, 513)
	for i := range mags {
		mags[i] = 0.01
		if i%8 == 0 {
			mags[i] = 1
		}
	}
	got := env.Extract(mags)
	lo, hi := math.Inf(1), 0.0
	for _, v := range got[16:500] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi/lo > 10 {
		t.Errorf("envelope ripple %v, expected comb of 100x to be smoothed", hi/lo)
	}
}

func TestEnvelopeAt(t *testing.T) {
	tr, err := fft.NewTransform(512)
	if err != nil {
		t.Fatal(err)
	}
	env := NewEnvelope(tr)
	vals := env.Values()
	for i := range vals {
		vals[i] = float64(i)
	}
	tests := []struct {
		pos, want float64
	}{
		{-3, 0},
		{0, 0},
		{10.25, 10.25},
		{255.5, 255.5},
		{256, 256},
		{900, 256},
	}
	for _, tt := range tests {
		if got := env.At(tt.pos); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("At(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestBandEnergies(t *testing.T) {
	const (
		n  = 1024
		sr = 48000.0
	)
	bands := DefaultBands(sr)
	mags := make([]float64, n/2+1)
	// Bin 21 is about 984 Hz, inside "mid".
	mags[21] = 1
	dst := make([]float64, len(bands))
	BandEnergies(dst, mags, bands, sr, n)
	for i, b := range bands {
		if b.Name == "mid" {
			if dst[i] <= 0 {
				t.Errorf("mid band = %v, want > 0", dst[i])
			}
			continue
		}
		if dst[i] != 0 {
			t.Errorf("%s band = %v, want 0", b.Name, dst[i])
		}
	}
}

func TestAnalyzeZeroAllocs(t *testing.T) {
	tr, _ := fft.NewTransform(1024)
	a := NewAnalyzer(1024, 256)
	env := NewEnvelope(tr)
	frame := utils.GenerateSineWave(1024, 48000, 440, 0.5)
	spec := make([]complex128, a.Bins())
	last := make([]float64, a.Bins())
	mags := make([]float64, a.Bins())
	freqs := make([]float64, a.Bins())

	allocs := testing.AllocsPerRun(50, func() {
		tr.Forward(spec, frame)
		a.Analyze(spec, last, mags, freqs)
		_ = FindFundamental(mags)
		_ = env.Extract(mags)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in analysis, got %.1f", allocs)
	}
}

func BenchmarkEnvelope(b *testing.B) {
	tr, _ := fft.NewTransform(2048)
	env := NewEnvelope(tr)
	mags := make([]float64, 1025)
	for i := range mags {
		mags[i] = 1 / float64(i+1)
	}
	for b.Loop() {
		env.Extract(mags)
	}
}
