// SPDX-License-Identifier: MIT
/*
Package audio connects the voice stream to the sound card and to files:
- Full-duplex mono capture and playback using PortAudio
- Peak noise gate ahead of the vocoder
- WAV recording of the processed output, fed through a lock-free ring
- Offline rendering of WAV and FLAC files

Thread Safety:
- The PortAudio callback is the stream's only producer
- Pre-allocates buffers to avoid GC in hot path
- Recording state and gate threshold are atomics shared with other goroutines
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"vocalfx/internal/config"
	"vocalfx/internal/log"
	"vocalfx/internal/ring"
	"vocalfx/pkg/bitint"
)

// recordFlushInterval is how often the recording goroutine drains the ring.
const recordFlushInterval = 20 * time.Millisecond

// Voice is the part of stream.Stream the callback drives.
type Voice interface {
	Tick(x float64) float64
}

type Engine struct {
	// Core configuration and state.
	config *config.Config
	voice  Voice
	gate   *Gate
	log    *log.Logger

	// Audio device handling.
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	paStream      *portaudio.Stream

	// Recording state and buffers.
	recording atomic.Bool
	recRing   *ring.Buffer // callback -> recording goroutine
	recBuf    []float64    // drain scratch, owned by the recording goroutine
	recorder  *Recorder
	recCancel context.CancelFunc
	recDone   chan struct{}
	recErr    error
	dropped   atomic.Uint64 // samples lost to a full recording ring
}

// NewEngine resolves the configured devices and prepares the engine. PortAudio
// must already be initialized.
func NewEngine(cfg *config.Config, voice Voice) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg, voice)
	if err != nil {
		return nil, err
	}
	engine.inputDevice = inputDevice
	engine.outputDevice = outputDevice

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return engine, nil
}

// newEngine builds everything except the device handles.
func newEngine(cfg *config.Config, voice Voice) (*Engine, error) {
	// Half a second of headroom for the recording goroutine.
	recRing, err := ring.New(bitint.NextPowerOfTwo(int(cfg.Audio.SampleRate) / 2))
	if err != nil {
		return nil, err
	}
	return &Engine{
		config:  cfg,
		voice:   voice,
		gate:    NewGate(cfg.Audio.GateThreshold),
		log:     log.Named("audio"),
		recRing: recRing,
		recBuf:  make([]float64, recRing.Cap()),
	}, nil
}

// Gate returns the input noise gate.
func (e *Engine) Gate() *Gate { return e.gate }

// Start opens and starts a full-duplex mono stream.
func (e *Engine) Start() error {
	if e.paStream != nil {
		return errors.New("audio stream already running")
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processBuffers)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	e.paStream = stream

	if err := e.paStream.Start(); err != nil {
		e.paStream.Close()
		e.paStream = nil
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	e.log.Infof("duplex stream: in %q, out %q, %.0f Hz, %d frames per buffer",
		e.inputDevice.Name, e.outputDevice.Name, e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)
	return nil
}

// Stop stops and closes the device stream.
func (e *Engine) Stop() error {
	if e.paStream != nil {
		if err := e.paStream.Stop(); err != nil {
			return err
		}

		if err := e.paStream.Close(); err != nil {
			return err
		}

		e.paStream = nil
	}

	return nil
}

// processBuffers is the PortAudio callback.
// Performance Critical:
// - Uses pre-allocated buffers only
// - No locks, no blocking, no dynamic allocations in the hot path
func (e *Engine) processBuffers(in, out []float32) {
	open := e.gate.Open(in)
	for i := range out {
		var x float64
		if open && i < len(in) {
			x = float64(in[i])
		}
		out[i] = float32(e.voice.Tick(x))
	}

	if e.recording.Load() {
		e.capture(out)
	}
}

// capture pushes processed samples for the recording goroutine.
func (e *Engine) capture(out []float32) {
	capacity := uint32(e.recRing.Cap())
	for _, y := range out {
		if e.recRing.Available() >= capacity {
			e.dropped.Add(1)
			continue
		}
		e.recRing.Push(float64(y))
	}
}

// Close stops any recording and the device stream.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}

	if err := e.Stop(); err != nil {
		return err
	}

	return nil
}
