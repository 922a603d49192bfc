// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FindFundamental returns the index of the strongest bin. Ties resolve to
// the lowest index; empty or all-zero input returns 0.
func FindFundamental(mags []float64) int {
	if len(mags) == 0 {
		return 0
	}
	return floats.MaxIdx(mags)
}

// BinFrequency converts a fractional bin position to Hz.
func BinFrequency(bin, sampleRate float64, n int) float64 {
	return bin * sampleRate / float64(n)
}

// Level returns the RMS of a frame, used for gating and meters.
func Level(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	return floats.Norm(frame, 2) / math.Sqrt(float64(len(frame)))
}
