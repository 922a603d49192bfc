// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"vocalfx/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Engine    EngineSection   `yaml:"engine"`    // Phase vocoder parameters, fixed per session.
	Musical   MusicalSection  `yaml:"musical"`   // Initial musical settings, changeable while running.
	Audio     AudioConfig     `yaml:"audio"`     // Audio device settings.
	Recording RecordingConfig `yaml:"recording"` // Processed-output recording settings.
	Transport TransportConfig `yaml:"transport"` // Telemetry transport settings (UDP).
	Server    ServerConfig    `yaml:"server"`    // HTTP control surface.
}

// EngineSection holds the vocoder configuration.
type EngineSection struct {
	Preset                  string  `yaml:"preset,omitempty"`          // realtime, low_latency or high_quality; replaces the tuning fields below.
	Mode                    string  `yaml:"mode"`                      // autotune, vocode or dry.
	FFTSize                 int     `yaml:"fft_size"`                  // 512, 1024, 2048 or 4096.
	HopRatio                float64 `yaml:"hop_ratio"`                 // Hop as a fraction of fft_size, (0, 0.5].
	PitchCorrectionStrength float64 `yaml:"pitch_correction_strength"` // Smoothing weight of each new ratio, [0, 1].
	TransitionSpeed         float64 `yaml:"transition_speed"`          // [0, 1].
	MinFrequency            float64 `yaml:"min_frequency"`             // Lowest corrected fundamental (Hz).
	MaxFrequency            float64 `yaml:"max_frequency"`             // Highest corrected fundamental (Hz).
	Window                  string  `yaml:"window"`                    // hann, blackman or bartletthann.
	Transform               string  `yaml:"transform"`                 // gonum (real-time) or godsp (offline only).
	Waveform                string  `yaml:"waveform"`                  // Internal carrier/synth oscillator shape.
	FallbackGain            float64 `yaml:"fallback_gain"`             // Pass-through gain for dropped frames.
	QueueDepth              int     `yaml:"queue_depth"`               // Pending hops before an overrun.
}

// MusicalSection holds the initial musical settings.
type MusicalSection struct {
	Key     string `yaml:"key"`     // "A minor", "F#", or an index 0-23.
	Note    int    `yaml:"note"`    // 0 snaps to the key; 1-9 select a degree.
	Octave  int    `yaml:"octave"`  // 1 down, 2 unchanged, 4 up.
	Formant int    `yaml:"formant"` // 0 none, 1 lower, 2 raise.
}

// AudioConfig holds settings related to the duplex audio stream.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per device callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Input peak below which a callback is silenced (0 disables).
}

// RecordingConfig holds settings related to recording the processed output.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record the processed output to file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	Format      string `yaml:"format"`               // File format for recordings ("wav").
	BitDepth    int    `yaml:"bit_depth"`            // Bit depth for recorded audio (16, 24 or 32).
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum recording length in seconds (0 for unlimited).
}

// TransportConfig holds settings related to sending telemetry over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending telemetry over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	SendSpectrum     bool          `yaml:"send_spectrum"`      // Include the magnitude spectrum in packets.
}

// ServerConfig holds the HTTP control surface settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"` // Serve /health, /settings, /stats and /ws.
	Addr    string `yaml:"addr"`    // Listen address.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Debug:    false,
		LogLevel: "info",
		Engine: EngineSection{
			Mode:                    DefaultMode,
			FFTSize:                 DefaultFFTSize,
			HopRatio:                DefaultHopRatio,
			PitchCorrectionStrength: 0.99,
			TransitionSpeed:         0.1,
			MinFrequency:            50,
			MaxFrequency:            4000,
			Window:                  DefaultWindow,
			Transform:               DefaultTransform,
			Waveform:                DefaultWaveform,
			FallbackGain:            0.8,
			QueueDepth:              8,
		},
		Musical: MusicalSection{
			Key:    DefaultKey,
			Octave: DefaultOctave,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			GateThreshold:   DefaultGateThreshold,
		},
		Recording: RecordingConfig{
			Enabled:     false,
			OutputDir:   DefaultOutputDir,
			Format:      DefaultFormat,
			BitDepth:    DefaultBitDepth,
			MaxDuration: 0, // 0 for unlimited.
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    DefaultServerAddr,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies the engine preset, then
// environment variable overrides, and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "vocalfx.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.Engine.Preset != "" {
		if err := cfg.ApplyPreset(cfg.Engine.Preset); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section. Engine and musical sections are checked by
// converting them to their runtime types.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}
	if _, err := c.EngineConfig(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if _, err := c.Settings(); err != nil {
		errs = append(errs, fmt.Errorf("musical: %w", err))
	}
	if _, err := c.StreamOptions(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}

	// Audio Validation
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %v outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d outside (0, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames))
	}
	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio devices must be >= %d", MinDeviceID))
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold >= 1 {
		errs = append(errs, fmt.Errorf("audio.gate_threshold %v outside [0, 1)", c.Audio.GateThreshold))
	}

	// Recording Validation
	if c.Recording.Enabled {
		if c.Recording.Format != "wav" {
			errs = append(errs, fmt.Errorf("recording.format %q unsupported (wav only)", c.Recording.Format))
		}
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			errs = append(errs, fmt.Errorf("recording.bit_depth %d unsupported (16, 24 or 32)", c.Recording.BitDepth))
		}
	}

	// Transport Validation
	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.udp_target_address %q: %w", c.Transport.UDPTargetAddress, err))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	// Server Validation
	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.addr %q: %w", c.Server.Addr, err))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparseable values are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Infof("configuration: overriding debug from env: %v", bVal)
		} else {
			log.Warnf("configuration: ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Infof("configuration: overriding log_level from env: %s", val)
	}

	// ENV_{MODE,FFT_SIZE,KEY}
	// These are specific to the engine.

	// ENV_MODE
	if val, ok := os.LookupEnv("ENV_MODE"); ok {
		cfg.Engine.Mode = val
		log.Infof("configuration: overriding engine.mode from env: %s", val)
	}
	// ENV_FFT_SIZE
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Engine.FFTSize = n
			log.Infof("configuration: overriding engine.fft_size from env: %d", n)
		} else {
			log.Warnf("configuration: ignoring ENV_FFT_SIZE=%q: %v", val, err)
		}
	}
	// ENV_KEY
	if val, ok := os.LookupEnv("ENV_KEY"); ok {
		cfg.Musical.Key = val
		log.Infof("configuration: overriding musical.key from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Infof("configuration: overriding transport.udp_enabled from env: %v", bVal)
		} else {
			log.Warnf("configuration: ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Infof("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Infof("configuration: overriding transport.udp_send_interval from env: %s", dur)
		} else {
			log.Warnf("configuration: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}

	// ENV_SERVER_ADDR
	if val, ok := os.LookupEnv("ENV_SERVER_ADDR"); ok {
		cfg.Server.Addr = val
		cfg.Server.Enabled = true
		log.Infof("configuration: overriding server.addr from env: %s", val)
	}
}
