// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 48000
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	if err := mt.Send([]float64{1, 2}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := mt.Send("second"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if mt.Sent != 2 {
		t.Errorf("Sent = %d, want 2", mt.Sent)
	}
	if got, ok := mt.LastData.(string); !ok || got != "second" {
		t.Errorf("LastData = %v, want \"second\"", mt.LastData)
	}
	_ = mt.Close()
	if !mt.Closed {
		t.Error("Close() did not mark transport closed")
	}
}

func TestGenerateSineWave(t *testing.T) {
	wave := GenerateSineWave(testSize, testSampleRate, 1000, 0.5)
	if len(wave) != testSize {
		t.Fatalf("len = %d, want %d", len(wave), testSize)
	}
	if wave[0] != 0 {
		t.Errorf("wave[0] = %v, want 0", wave[0])
	}
	if p := Peak(wave); p > 0.5 || p < 0.49 {
		t.Errorf("peak = %v, want ~0.5", p)
	}
	// 48 samples per period at 1kHz/48kHz.
	if math.Abs(wave[12]-0.5) > 1e-12 {
		t.Errorf("wave[12] = %v, want 0.5", wave[12])
	}
}

func TestGenerateNoiseDeterministic(t *testing.T) {
	a := GenerateNoise(256, 7, 1)
	b := GenerateNoise(256, 7, 1)
	d, err := MaxAbsDiff(a, b)
	if err != nil || d != 0 {
		t.Fatalf("noise not deterministic: diff=%v err=%v", d, err)
	}
	if Peak(a) > 1 {
		t.Errorf("noise exceeds amplitude: %v", Peak(a))
	}
	RequireFinite(t, a)
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, testSize)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"Full range", 0, testSize - 1, testSize / 4},
		{"Clamped range", -5, testSize * 2, testSize / 4},
		{"Window after peak", testSize / 2, testSize - 1, testSize / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.want)
			}
		})
	}
	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}

func TestMaxAbsDiffLengthMismatch(t *testing.T) {
	if _, err := MaxAbsDiff([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected length mismatch error")
	}
}
