// Package utils holds deterministic signal generators and tolerance helpers
// shared by the package tests.
package utils

import "math"

// MockTransport records the last value sent through it.
type MockTransport struct {
	Sent     int
	LastData any
	Closed   bool
}

// Send stores data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.Sent++
	m.LastData = data
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics scaled
// to peak below amplitude.
func GenerateComplexWave(size int, sampleRate, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = signal * amplitude
	}
	return buffer
}

// GenerateNoise returns a deterministic pseudo-random sequence in
// [-amplitude, amplitude) from a linear congruential generator.
func GenerateNoise(size int, seed uint32, amplitude float64) []float64 {
	buffer := make([]float64, size)
	state := seed
	for i := range buffer {
		state = state*1664525 + 1013904223
		buffer[i] = amplitude * (float64(state)/float64(1<<32)*2 - 1)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
