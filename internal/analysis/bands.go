// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band is a named frequency range used for level meters.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands covers the audible range in six bands, the top one ending
// at Nyquist.
func DefaultBands(sampleRate float64) []Band {
	return []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// BandScale maps RMS band magnitude into a meter value; results clamp to 1.
const BandScale = 50.0

// BandEnergies writes one meter value per band into dst, computed as the
// scaled RMS of the magnitudes whose bin frequency falls in the band.
// Bands with no bins read 0. dst must hold len(bands) values.
func BandEnergies(dst []float64, mags []float64, bands []Band, sampleRate float64, n int) {
	binHz := sampleRate / float64(n)
	for b, band := range bands {
		lo := int(math.Ceil(band.LowHz / binHz))
		hi := int(math.Ceil(band.HighHz / binHz)) // exclusive
		if lo < 0 {
			lo = 0
		}
		if hi > len(mags) {
			hi = len(mags)
		}
		if hi <= lo {
			dst[b] = 0
			continue
		}
		var energy float64
		for _, m := range mags[lo:hi] {
			energy += m * m
		}
		dst[b] = math.Min(1, math.Sqrt(energy/float64(hi-lo))*BandScale)
	}
}
