// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"testing"
)

var (
	quietBuffer = []float32{0.001, -0.002, 0.0015, -0.0005}
	loudBuffer  = []float32{0.5, -0.9, 0.25, -0.1}
)

func TestGateEnable(t *testing.T) {
	g := NewGate(0)
	if g.Enabled() {
		t.Error("Gate with zero threshold should start disabled")
	}

	g.Enable()
	g.Enable() // Multiple calls should be idempotent
	if !g.Enabled() {
		t.Error("Gate should be enabled after Enable()")
	}

	g.Disable()
	g.Disable()
	if g.Enabled() {
		t.Error("Gate should be disabled after Disable()")
	}

	if !NewGate(0.1).Enabled() {
		t.Error("Gate with a threshold should start enabled")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0},       // Below min
		{0.0, 0.0},        // Minimum
		{0.5, 0.5},        // Middle
		{1.0, 1.0},        // Maximum
		{1.5, 1.0},        // Above max
		{math.NaN(), 0.0}, // Garbage
	}

	g := NewGate(0)
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.input), func(t *testing.T) {
			g.SetThreshold(tt.input)
			if got := g.Threshold(); got != tt.expected {
				t.Errorf("threshold: got %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateOpen(t *testing.T) {
	tests := []struct {
		desc      string
		buffer    []float32
		enabled   bool
		threshold float64
		open      bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, true, 0.95, false},
		{"Gate enabled/Empty buffer", nil, true, 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			g := NewGate(tt.threshold)
			if !tt.enabled {
				g.Disable()
			}
			if got := g.Open(tt.buffer); got != tt.open {
				t.Errorf("Open() = %v, want %v (peak %v)", got, tt.open, Peak32(tt.buffer))
			}
		})
	}
}

func TestPeak32(t *testing.T) {
	if p := Peak32(loudBuffer); p != 0.9 {
		t.Errorf("Peak32 = %v, want 0.9", p)
	}
	if p := Peak32([]float32{float32(math.Copysign(0, -1))}); p != 0 {
		t.Errorf("Peak32(-0) = %v", p)
	}
}

func TestGateNoAllocs(t *testing.T) {
	g := NewGate(0.01)
	buf := make([]float32, 1024)
	for i := range buf {
		buf[i] = float32(i%100) / 100
	}
	allocs := testing.AllocsPerRun(100, func() { _ = g.Open(buf) })
	if allocs > 0 {
		t.Errorf("Expected zero allocations in noise gate, got %.1f", allocs)
	}
}

func BenchmarkGateOpen(b *testing.B) {
	g := NewGate(0.5)
	buf := make([]float32, 256)
	for i := range buf {
		buf[i] = float32(math.Sin(float64(i) / 10))
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = g.Open(buf)
	}
}
