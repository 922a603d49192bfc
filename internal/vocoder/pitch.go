// SPDX-License-Identifier: MIT
package vocoder

import (
	"math"

	"vocalfx/internal/analysis"
	"vocalfx/internal/scale"
)

// Ratio bounds applied before smoothing.
const (
	MinRatio = 0.5
	MaxRatio = 2.0
)

// Detection describes the pitch decision for one frame.
type Detection struct {
	Bin      int
	Detected float64 // Hz
	Target   float64 // Hz, 0 when skipped
	Ratio    float64 // glided ratio applied to the frame
	Skipped  bool
}

// PitchEngine detects the fundamental and derives the smoothed shift ratio
// towards the selected note.
type PitchEngine struct {
	cfg   Config
	glide float64
}

// NewPitchEngine returns an engine for cfg.
func NewPitchEngine(cfg Config) PitchEngine {
	return PitchEngine{cfg: cfg, glide: GlideRate(cfg.TransitionSpeed)}
}

// GlideRate is the per-frame weight 1 - e^(-10·speed) with which the
// applied ratio follows the corrected one. Speed 0 never leaves unity;
// speed 1 follows within 0.005%.
func GlideRate(speed float64) float64 {
	return 1 - math.Exp(-10*speed)
}

// Detect returns the fundamental bin and its frequency in Hz. freqs holds
// the precise fractional-bin estimates from analysis.
func (e PitchEngine) Detect(mags, freqs []float64) (int, float64) {
	bin := analysis.FindFundamental(mags)
	precise := freqs[bin]
	if precise <= 0 {
		precise = float64(bin)
	}
	return bin, analysis.BinFrequency(precise, e.cfg.SampleRate, e.cfg.FFTSize)
}

// Target returns the frequency detected should be pulled towards. Note 0
// snaps to the nearest note of the key; otherwise the note and octave are
// looked up directly.
func (e PitchEngine) Target(detected float64, s Settings) float64 {
	if s.Note == 0 {
		return scale.NearestInScale(detected, scale.ForKey(s.Key)[:])
	}
	return scale.TargetFrequency(s.Key, s.Note, s.Octave)
}

// Ratio updates the ratios in st for this frame and returns the decision.
// st.PreviousRatio takes PitchCorrectionStrength of the clamped raw ratio;
// st.GlideRatio then moves towards it at the TransitionSpeed rate and is the
// ratio applied to the frame. Fundamentals outside the configured range
// hold both. A target that cannot be resolved also holds them and returns
// ErrProcessingFailed.
func (e PitchEngine) Ratio(mags, freqs []float64, st *State, s Settings) (Detection, error) {
	bin, detected := e.Detect(mags, freqs)
	d := Detection{Bin: bin, Detected: detected, Ratio: st.GlideRatio}

	if detected < e.cfg.MinFrequency || detected > e.cfg.MaxFrequency {
		d.Skipped = true
		return d, nil
	}
	target := e.Target(detected, s)
	if target <= 0 {
		d.Skipped = true
		return d, ErrProcessingFailed
	}

	raw := min(max(target/detected, MinRatio), MaxRatio)
	alpha := e.cfg.PitchCorrectionStrength
	st.PreviousRatio = alpha*raw + (1-alpha)*st.PreviousRatio
	st.GlideRatio += e.glide * (st.PreviousRatio - st.GlideRatio)

	d.Target = target
	d.Ratio = st.GlideRatio
	return d, nil
}
