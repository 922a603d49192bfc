// SPDX-License-Identifier: MIT
package analysis

// SpectrumProvider exposes the latest analysed spectrum to readers outside
// the audio path, such as the monitor and telemetry publishers.
type SpectrumProvider interface {
	// MagnitudesInto copies the latest magnitudes into dst and returns the
	// number of values written. It never allocates.
	MagnitudesInto(dst []float64) int
	FrequencyForBin(bin int) float64 // FrequencyForBin returns the centre frequency (Hz) of bin.
	FFTSize() int
	SampleRate() float64
}
