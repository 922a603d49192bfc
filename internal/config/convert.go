package config

import (
	"vocalfx/internal/fft"
	"vocalfx/internal/log"
	"vocalfx/internal/scale"
	"vocalfx/internal/stream"
	"vocalfx/internal/vocoder"
)

// EngineConfig converts the engine section into a validated vocoder.Config
// at the audio sample rate.
func (c *Config) EngineConfig() (vocoder.Config, error) {
	e := c.Engine
	mode, err := vocoder.ParseMode(e.Mode)
	if err != nil {
		return vocoder.Config{}, err
	}
	win, err := fft.ParseWindowFunc(e.Window)
	if err != nil {
		return vocoder.Config{}, err
	}
	backend, err := fft.ParseBackend(e.Transform)
	if err != nil {
		return vocoder.Config{}, err
	}

	cfg := vocoder.Config{
		FFTSize:                 e.FFTSize,
		HopRatio:                e.HopRatio,
		SampleRate:              c.Audio.SampleRate,
		Mode:                    mode,
		PitchCorrectionStrength: e.PitchCorrectionStrength,
		TransitionSpeed:         e.TransitionSpeed,
		MinFrequency:            e.MinFrequency,
		MaxFrequency:            e.MaxFrequency,
		Window:                  win,
		Backend:                 backend,
	}
	if err := cfg.Validate(); err != nil {
		return vocoder.Config{}, err
	}
	return cfg, nil
}

// Settings converts the musical section into validated vocoder.Settings.
func (c *Config) Settings() (vocoder.Settings, error) {
	key, err := scale.ParseKey(c.Musical.Key)
	if err != nil {
		return vocoder.Settings{}, &vocoder.ConfigError{Field: "key", Value: c.Musical.Key, Reason: err.Error()}
	}
	s := vocoder.Settings{
		Key:     key,
		Note:    c.Musical.Note,
		Octave:  c.Musical.Octave,
		Formant: c.Musical.Formant,
	}
	if err := s.Validate(); err != nil {
		return vocoder.Settings{}, err
	}
	return s, nil
}

// StreamOptions converts the stream tuning fields.
func (c *Config) StreamOptions() (stream.Options, error) {
	w, err := vocoder.ParseWaveform(c.Engine.Waveform)
	if err != nil {
		return stream.Options{}, err
	}
	if c.Engine.FallbackGain < 0 || c.Engine.FallbackGain > 1 {
		return stream.Options{}, &vocoder.ConfigError{Field: "fallback_gain", Value: c.Engine.FallbackGain, Reason: "must be in [0, 1]"}
	}
	return stream.Options{
		FallbackGain: c.Engine.FallbackGain,
		QueueDepth:   c.Engine.QueueDepth,
		Waveform:     w,
	}, nil
}

// ApplyPreset replaces the engine tuning fields with the named preset.
// Mode, window, transform and the stream fields are kept.
func (c *Config) ApplyPreset(name string) error {
	p, err := vocoder.Preset(name)
	if err != nil {
		return err
	}
	c.Engine.Preset = name
	c.Engine.FFTSize = p.FFTSize
	c.Engine.HopRatio = p.HopRatio
	c.Engine.PitchCorrectionStrength = p.PitchCorrectionStrength
	c.Engine.TransitionSpeed = p.TransitionSpeed
	c.Engine.MinFrequency = p.MinFrequency
	c.Engine.MaxFrequency = p.MaxFrequency
	return nil
}

// SetSettings writes s back into the musical section, e.g. before saving.
func (c *Config) SetSettings(s vocoder.Settings) {
	c.Musical = MusicalSection{
		Key:     scale.Label(s.Key),
		Note:    s.Note,
		Octave:  s.Octave,
		Formant: s.Formant,
	}
}

// Level returns the effective log level; Debug forces LevelDebug.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	lvl, _ := log.ParseLevel(c.LogLevel)
	return lvl
}
