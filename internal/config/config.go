package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the voice engine.
const (
	// Audio device defaults
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultFramesPerBuffer = 256         // Callback size; independent of the FFT hop
	DefaultLowLatency      = true        // Live voice wants the short device latency
	DefaultSampleRate      = 48000.0
	DefaultGateThreshold   = 0.0 // Noise gate off

	// Engine defaults
	DefaultMode      = "autotune"
	DefaultFFTSize   = 1024
	DefaultHopRatio  = 0.25
	DefaultWindow    = "hann"
	DefaultTransform = "gonum"
	DefaultWaveform  = "saw"

	// Musical defaults
	DefaultKey    = "C major"
	DefaultOctave = 2

	// Recording defaults
	DefaultFormat    = "wav"
	DefaultBitDepth  = 16
	DefaultOutputDir = "./recordings"

	// Transport and control surface defaults
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30 Hz
	DefaultServerAddr       = "127.0.0.1:8080"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)

	// Error handling configuration
	DefaultMaxConsecutiveWriteFailures = 5 // Recording write failures before stopping
)
