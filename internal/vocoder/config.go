// SPDX-License-Identifier: MIT
package vocoder

import (
	"fmt"
	"math"
	"strings"

	"vocalfx/internal/fft"
	"vocalfx/pkg/bitint"
)

// Mode selects the per-frame processing path.
type Mode int

const (
	ModeAutotune Mode = iota
	ModeVocode
	ModeDry
)

func (m Mode) String() string {
	switch m {
	case ModeAutotune:
		return "autotune"
	case ModeVocode:
		return "vocode"
	case ModeDry:
		return "dry"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "autotune":
		return ModeAutotune, nil
	case "vocode", "vocoder":
		return ModeVocode, nil
	case "dry":
		return ModeDry, nil
	default:
		return ModeAutotune, &ConfigError{Field: "mode", Value: name, Reason: "must be autotune, vocode or dry"}
	}
}

// Default engine parameters.
const (
	DefaultFFTSize                 = 1024
	DefaultHopRatio                = 0.25
	DefaultSampleRate              = 48000.0
	DefaultPitchCorrectionStrength = 0.99
	DefaultTransitionSpeed         = 0.1
	DefaultMinFrequency            = 50.0
	DefaultMaxFrequency            = 4000.0
)

// Config is fixed for the lifetime of a Processor. Build it with NewConfig
// or a preset and adjust fields before calling Validate.
type Config struct {
	FFTSize    int
	HopRatio   float64
	HopSize    int
	SampleRate float64
	Mode       Mode

	// PitchCorrectionStrength is the smoothing weight given to the newly
	// computed ratio each frame. 0 disables correction.
	PitchCorrectionStrength float64
	// TransitionSpeed sets how fast the applied ratio glides to the
	// corrected one; see GlideRate.
	TransitionSpeed float64

	// Fundamentals outside [MinFrequency, MaxFrequency] Hz are not corrected.
	MinFrequency float64
	MaxFrequency float64

	Window  fft.WindowFunc
	Backend fft.Backend
}

// NewConfig returns a validated autotune configuration with default tuning
// parameters.
func NewConfig(fftSize int, hopRatio, sampleRate float64) (Config, error) {
	cfg := Config{
		FFTSize:                 fftSize,
		HopRatio:                hopRatio,
		SampleRate:              sampleRate,
		Mode:                    ModeAutotune,
		PitchCorrectionStrength: DefaultPitchCorrectionStrength,
		TransitionSpeed:         DefaultTransitionSpeed,
		MinFrequency:            DefaultMinFrequency,
		MaxFrequency:            DefaultMaxFrequency,
		Window:                  fft.Hann,
		Backend:                 fft.Gonum,
	}
	cfg.HopSize = hopSize(fftSize, hopRatio)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig is the 1024-point, quarter-hop, 48 kHz configuration.
func DefaultConfig() Config {
	cfg, _ := NewConfig(DefaultFFTSize, DefaultHopRatio, DefaultSampleRate)
	return cfg
}

func hopSize(fftSize int, hopRatio float64) int {
	return int(math.Round(float64(fftSize) * hopRatio))
}

// Validate checks every field and fills HopSize from HopRatio when unset.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.FFTSize) {
		return &ConfigError{Field: "fft_size", Value: c.FFTSize, Reason: "must be a power of two", Err: ErrUnsupportedFFTSize}
	}
	if !fft.IsSupported(c.FFTSize) {
		return fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedFFTSize, c.FFTSize, fft.SupportedSizes)
	}
	if !(c.HopRatio > 0 && c.HopRatio <= 0.5) {
		return &ConfigError{Field: "hop_ratio", Value: c.HopRatio, Reason: "must be in (0, 0.5]"}
	}
	if c.HopSize == 0 {
		c.HopSize = hopSize(c.FFTSize, c.HopRatio)
	}
	if c.HopSize <= 0 || c.HopSize >= c.FFTSize {
		return &ConfigError{Field: "hop_size", Value: c.HopSize, Reason: "must be positive and smaller than fft_size"}
	}
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return &ConfigError{Field: "sample_rate", Value: c.SampleRate, Reason: "must be positive"}
	}
	if c.Mode < ModeAutotune || c.Mode > ModeDry {
		return &ConfigError{Field: "mode", Value: int(c.Mode), Reason: "unknown mode"}
	}
	if !inUnit(c.PitchCorrectionStrength) {
		return &ConfigError{Field: "pitch_correction_strength", Value: c.PitchCorrectionStrength, Reason: "must be in [0, 1]"}
	}
	if !inUnit(c.TransitionSpeed) {
		return &ConfigError{Field: "transition_speed", Value: c.TransitionSpeed, Reason: "must be in [0, 1]"}
	}
	if !(c.MinFrequency > 0) || !(c.MaxFrequency > c.MinFrequency) {
		return &ConfigError{
			Field:  "frequency_range",
			Value:  fmt.Sprintf("[%g, %g]", c.MinFrequency, c.MaxFrequency),
			Reason: "must satisfy 0 < min < max",
		}
	}
	return nil
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }

// Latency is the delay in samples between input and output when streaming:
// one frame plus two hops.
func (c Config) Latency() int { return c.FFTSize + 2*c.HopSize }

// Bins is FFTSize/2 + 1.
func (c Config) Bins() int { return c.FFTSize/2 + 1 }

// Presets.

// Realtime balances latency and CPU use.
func Realtime() Config {
	cfg := DefaultConfig()
	cfg.HopRatio, cfg.HopSize = 0.25, 256
	cfg.TransitionSpeed = 0.2
	cfg.PitchCorrectionStrength = 0.8
	cfg.MinFrequency, cfg.MaxFrequency = 80, 2000
	return cfg
}

// LowLatency uses a shorter hop for faster response.
func LowLatency() Config {
	cfg := DefaultConfig()
	cfg.HopRatio, cfg.HopSize = 0.125, 128
	cfg.TransitionSpeed = 0.3
	cfg.PitchCorrectionStrength = 0.7
	cfg.MinFrequency, cfg.MaxFrequency = 80, 2000
	return cfg
}

// HighQuality trades latency for fewer frames per second.
func HighQuality() Config {
	cfg := DefaultConfig()
	cfg.HopRatio, cfg.HopSize = 0.5, 512
	cfg.TransitionSpeed = 0.15
	cfg.PitchCorrectionStrength = 0.85
	cfg.MinFrequency, cfg.MaxFrequency = 60, 4000
	return cfg
}

// PresetNames lists the names accepted by Preset.
var PresetNames = []string{"realtime", "low_latency", "high_quality"}

// Preset returns the named preset.
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "realtime":
		return Realtime(), nil
	case "low_latency":
		return LowLatency(), nil
	case "high_quality":
		return HighQuality(), nil
	default:
		return Config{}, &ConfigError{Field: "preset", Value: name, Reason: "unknown preset"}
	}
}
