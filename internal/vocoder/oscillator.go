// SPDX-License-Identifier: MIT
package vocoder

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Saw
	Square
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Saw:
		return "saw"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	default:
		return "unknown"
	}
}

// ParseWaveform converts a waveform name (case-insensitive) to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(name) {
	case "", "sine":
		return Sine, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	default:
		return Sine, fmt.Errorf("unknown waveform: '%s'", name)
	}
}

// Oscillator is a naive phase-accumulator oscillator producing the vocode
// carrier and the dry-mode synth voice.
type Oscillator struct {
	freq       float64
	sampleRate float64
	phase      float64 // [0, 1)
	waveform   Waveform
}

// NewOscillator returns an oscillator at freq Hz.
func NewOscillator(freq, sampleRate float64, waveform Waveform) *Oscillator {
	return &Oscillator{freq: freq, sampleRate: sampleRate, waveform: waveform}
}

func (o *Oscillator) SetFrequency(freq float64) { o.freq = freq }
func (o *Oscillator) SetWaveform(w Waveform)    { o.waveform = w }
func (o *Oscillator) Frequency() float64        { return o.freq }

// Next advances one sample and returns a value in [-1, 1]. A frequency of
// zero yields silence.
func (o *Oscillator) Next() float64 {
	if o.freq <= 0 {
		return 0
	}
	o.phase += o.freq / o.sampleRate
	o.phase -= math.Floor(o.phase)

	switch o.waveform {
	case Saw:
		return 2*o.phase - 1
	case Square:
		if o.phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		return 4*math.Abs(o.phase-0.5) - 1
	default:
		return math.Sin(2 * math.Pi * o.phase)
	}
}
