// SPDX-License-Identifier: MIT
package vocoder

import (
	"math"
	"math/cmplx"
)

const (
	// magnitudeThreshold skips bins too quiet to move.
	magnitudeThreshold = 1e-8
	// envelopeFloor avoids dividing by a silent envelope.
	envelopeFloor = 1e-6
	// carrierFloor zeroes vocode bins with no carrier energy.
	carrierFloor = 1e-4
)

// remapShift moves each analysis bin to round(i·ratio) in the synthesis
// arrays, accumulating magnitudes. With useFormant set, the spectral
// envelope is divided out and replaced by the envelope sampled at
// i/formantRatio. Bins that receive nothing keep their own analysis
// frequency so their phase keeps advancing naturally.
func (p *Processor) remapShift(st *State, ratio, formantRatio float64, useFormant bool) {
	synthMags := st.SynthesisMagnitudes
	synthFreqs := st.SynthesisFrequencies
	clear(synthMags)
	copy(synthFreqs, p.freqs)

	var env []float64
	if useFormant {
		env = p.env.Extract(p.mags)
	}

	nyquist := p.cfg.FFTSize / 2
	for i, mag := range p.mags {
		if mag <= magnitudeThreshold {
			continue
		}
		if useFormant {
			residual := mag
			if env[i] > envelopeFloor {
				residual = mag / env[i]
			}
			mag = residual * p.env.At(float64(i)/formantRatio)
		}

		target := int(math.Round(float64(i) * ratio))
		if target > nyquist {
			continue
		}
		synthMags[target] += mag
		synthFreqs[target] = p.freqs[i] * ratio
	}
}

// remapVocode imposes the vocal magnitudes on the carrier spectrum held in
// p.carrier, keeping the carrier phase, and writes the result into p.spec.
func (p *Processor) remapVocode() {
	for i, c := range p.carrier {
		cm := cmplx.Abs(c)
		s := 0.0
		if cm > carrierFloor {
			s = p.mags[i] / cm
		}
		p.spec[i] = c * complex(s, 0)
	}
}
