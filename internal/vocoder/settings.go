// SPDX-License-Identifier: MIT
package vocoder

import "vocalfx/internal/scale"

// Formant shift selections.
const (
	FormantNone  = 0
	FormantLower = 1
	FormantRaise = 2
)

// Settings are the musical parameters applied per frame. They are small
// values and are passed by value so a frame never sees a torn update.
type Settings struct {
	Key     int `json:"key" yaml:"key"`         // 0-11 major, 12-23 minor
	Note    int `json:"note" yaml:"note"`       // 0 snaps to the nearest scale note; 1-9 select a degree
	Octave  int `json:"octave" yaml:"octave"`   // 1 down, 2 unchanged, 4 up
	Formant int `json:"formant" yaml:"formant"` // FormantNone, FormantLower or FormantRaise
}

// DefaultSettings is C major, auto-snap, no octave or formant change.
func DefaultSettings() Settings {
	return Settings{Key: 0, Note: 0, Octave: 2, Formant: FormantNone}
}

// Validate reports the first out-of-range field.
func (s Settings) Validate() error {
	switch {
	case s.Key < 0 || s.Key >= scale.Keys:
		return &ConfigError{Field: "key", Value: s.Key, Reason: "must be in [0, 23]"}
	case s.Note < 0 || s.Note > 9:
		return &ConfigError{Field: "note", Value: s.Note, Reason: "must be in [0, 9]"}
	case s.Octave < -4 || s.Octave > 8:
		return &ConfigError{Field: "octave", Value: s.Octave, Reason: "must be in [-4, 8]"}
	case s.Formant < FormantNone || s.Formant > FormantRaise:
		return &ConfigError{Field: "formant", Value: s.Formant, Reason: "must be 0, 1 or 2"}
	}
	return nil
}

// shiftFormantRatio is the envelope stretch used by autotune.
func shiftFormantRatio(formant int) float64 {
	switch formant {
	case FormantLower:
		return 0.5
	case FormantRaise:
		return 2.0
	default:
		return 1.0
	}
}

// dryFormantRatio is the gentler envelope stretch used by dry mode.
func dryFormantRatio(formant int) float64 {
	switch formant {
	case FormantLower:
		return 0.8
	case FormantRaise:
		return 1.3
	default:
		return 1.0
	}
}

// dryPitchRatio maps the octave selection to a fixed shift of half the
// setting: 1 halves the pitch, 2 leaves it, 4 doubles it. Settings at or
// below 0 give unity.
func dryPitchRatio(octave int) float64 {
	if r := 0.5 * float64(octave); r > 0.4 {
		return r
	}
	return 1.0
}
