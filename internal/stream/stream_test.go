// SPDX-License-Identifier: MIT
package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"testing"

	"vocalfx/internal/vocoder"
	"vocalfx/pkg/utils"
)

func testConfig(t testing.TB, n int, mode vocoder.Mode, strength float64) vocoder.Config {
	t.Helper()
	cfg, err := vocoder.NewConfig(n, 0.25, 48000)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Mode = mode
	cfg.PitchCorrectionStrength = strength
	return cfg
}

func TestControllerUnityReconstruction(t *testing.T) {
	for _, n := range []int{512, 1024, 2048} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			ctl, err := NewController(testConfig(t, n, vocoder.ModeAutotune, 0), vocoder.DefaultSettings(), Options{})
			if err != nil {
				t.Fatal(err)
			}
			lat := ctl.Latency()
			if lat != n+n/2 {
				t.Fatalf("Latency() = %d, want %d", lat, n+n/2)
			}

			in := utils.GenerateSineWave(lat+8*n, 48000, 440, 0.3)
			out := make([]float64, len(in))
			if err := ctl.ProcessBlock(in, out); err != nil {
				t.Fatal(err)
			}
			utils.RequireFinite(t, out)

			for j := range lat {
				if math.Abs(out[j]) > 1e-6 {
					t.Fatalf("out[%d] = %v inside the initial latency", j, out[j])
				}
			}
			diff, _ := utils.MaxAbsDiff(out[lat+n:], in[n:len(in)-lat])
			if diff > 1e-2 {
				t.Errorf("max deviation from delayed input = %v, want <= 1e-2", diff)
			}
		})
	}
}

func TestControllerSilence(t *testing.T) {
	for _, mode := range []vocoder.Mode{vocoder.ModeAutotune, vocoder.ModeVocode, vocoder.ModeDry} {
		t.Run(mode.String(), func(t *testing.T) {
			ctl, err := NewController(testConfig(t, 512, mode, 0.99), vocoder.Settings{Key: 5, Octave: 4}, Options{})
			if err != nil {
				t.Fatal(err)
			}
			in := make([]float64, 4096)
			out := make([]float64, len(in))
			if err := ctl.ProcessBlock(in, out); err != nil {
				t.Fatal(err)
			}
			if p := utils.Peak(out); p > 1e-9 {
				t.Errorf("peak %v from silence", p)
			}
		})
	}
}

func TestProcessBlockMismatch(t *testing.T) {
	ctl, err := NewController(testConfig(t, 512, vocoder.ModeAutotune, 0.99), vocoder.DefaultSettings(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{0.5, -0.5, 0.25, 1, 1, 1, 1, 1, 1, 1}
	out := make([]float64, 6)
	err = ctl.ProcessBlock(in, out)
	if !errors.Is(err, vocoder.ErrBufferSizeMismatch) {
		t.Fatalf("error = %v, want ErrBufferSizeMismatch", err)
	}
	for i := range out {
		if want := in[i] * DefaultFallbackGain; out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	if got := ctl.Stats().Samples.Load(); got != 0 {
		t.Errorf("mismatched block advanced the stream by %d samples", got)
	}
	if got := ctl.Stats().BypassedSamples.Load(); got != 6 {
		t.Errorf("BypassedSamples = %d, want 6", got)
	}
}

func TestControllerTelemetry(t *testing.T) {
	ctl, err := NewController(testConfig(t, 2048, vocoder.ModeAutotune, 0.99), vocoder.DefaultSettings(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	in := utils.GenerateSineWave(2048*6, 48000, 445, 0.5)
	out := make([]float64, len(in))
	if err := ctl.ProcessBlock(in, out); err != nil {
		t.Fatal(err)
	}

	tel := ctl.Telemetry(true)
	if math.Abs(tel.Detected-445) > 2 {
		t.Errorf("Detected = %v, want about 445", tel.Detected)
	}
	if tel.Target != 440 || tel.Note != "A" || tel.Octave != 4 {
		t.Errorf("target %v %s%d, want 440 A4", tel.Target, tel.Note, tel.Octave)
	}
	if want := 440.0 / 445; math.Abs(tel.Ratio-want) > 5e-3 {
		t.Errorf("Ratio = %v, want about %v", tel.Ratio, want)
	}
	if tel.Key != "C Major" || len(tel.Magnitudes) != 1025 || len(tel.Bands) != 6 {
		t.Errorf("unexpected telemetry shape: key %q, %d mags, %d bands", tel.Key, len(tel.Magnitudes), len(tel.Bands))
	}
	if tel.Frame != ctl.Stats().Frames.Load() {
		t.Errorf("Frame = %d, Frames counter = %d", tel.Frame, ctl.Stats().Frames.Load())
	}
	if ctl.Telemetry(false).Magnitudes != nil {
		t.Error("spectrum included when not requested")
	}
}

func TestControllerSettings(t *testing.T) {
	ctl, err := NewController(testConfig(t, 512, vocoder.ModeVocode, 0.99), vocoder.DefaultSettings(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ctl.SetSettings(vocoder.Settings{Key: 30}); !errors.Is(err, vocoder.ErrInvalidConfiguration) {
		t.Errorf("invalid settings accepted: %v", err)
	}
	want := vocoder.Settings{Key: 12, Note: 3, Octave: 1, Formant: vocoder.FormantLower}
	if err := ctl.SetSettings(want); err != nil {
		t.Fatal(err)
	}
	if got := ctl.Settings(); got != want {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
	if _, err := NewController(testConfig(t, 512, vocoder.ModeDry, 0.99), vocoder.Settings{Note: 12}, Options{}); err == nil {
		t.Error("NewController accepted invalid settings")
	}
}

func TestCarrierFrequency(t *testing.T) {
	// Without a note the carrier sits on the tonic.
	if got, want := carrierFrequency(vocoder.DefaultSettings()), carrierFrequency(vocoder.Settings{Note: 1, Octave: 2}); got != want || got <= 0 {
		t.Errorf("carrier for note 0 = %v, want tonic %v", got, want)
	}
}

// tickAll feeds in through s, draining after every sample so the consumer
// always keeps up.
func tickAll(s *Stream, in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = s.Tick(x)
		s.Drain()
	}
	return out
}

func TestStreamMatchesController(t *testing.T) {
	cfg := testConfig(t, 1024, vocoder.ModeDry, 0.99)
	settings := vocoder.Settings{Octave: 4, Formant: vocoder.FormantRaise}
	in := utils.GenerateComplexWave(16384, 48000, 0.4)

	ctl, err := NewController(cfg, settings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, len(in))
	if err := ctl.ProcessBlock(in, want); err != nil {
		t.Fatal(err)
	}

	s, err := New(cfg, settings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := tickAll(s, in)
	utils.RequireNearlyEqual(t, got, want, 0)

	st := s.Stats().Snapshot()
	if st.Dropped() != 0 || st.Frames != st.Hops {
		t.Errorf("stats %+v, want every hop processed", st)
	}
}

func TestStreamOverrunBypass(t *testing.T) {
	cfg := testConfig(t, 512, vocoder.ModeAutotune, 0.99)
	s, err := New(cfg, vocoder.DefaultSettings(), Options{QueueDepth: 2})
	if err != nil {
		t.Fatal(err)
	}
	hop := cfg.HopSize

	// Two hops fill the queue; the third overruns.
	for range 3 * hop {
		s.Tick(0.5)
	}
	if got := s.Stats().Overruns.Load(); got != 1 {
		t.Fatalf("Overruns = %d, want 1", got)
	}
	if got := s.Tick(0.5); got != 0.5*DefaultFallbackGain {
		t.Errorf("output during overrun = %v, want %v", got, 0.5*DefaultFallbackGain)
	}
	if got := s.Drain(); got != 2 {
		t.Errorf("Drain() = %d, want the 2 queued frames", got)
	}
}

func TestStreamLateFrames(t *testing.T) {
	cfg := testConfig(t, 512, vocoder.ModeAutotune, 0.99)
	s, err := New(cfg, vocoder.DefaultSettings(), Options{QueueDepth: 64})
	if err != nil {
		t.Fatal(err)
	}
	hop, lat := cfg.HopSize, s.Latency()
	const hops = 20
	for range hops * hop {
		s.Tick(0.25)
	}
	s.Drain()

	// Frames ending at or before read - latency + fft have missed their slot.
	read := hops * hop
	late := 0
	for k := 1; k <= hops; k++ {
		if k*hop-cfg.FFTSize+lat <= read {
			late++
		}
	}
	st := s.Stats().Snapshot()
	if int(st.LateFrames) != late || int(st.Frames) != hops-late {
		t.Errorf("late %d frames %d, want late %d frames %d", st.LateFrames, st.Frames, late, hops-late)
	}
	if got := s.Tick(0.25); got != 0.25*DefaultFallbackGain {
		t.Errorf("output after late frames = %v, want pass-through", got)
	}
}

func TestStreamManualBypass(t *testing.T) {
	s, err := New(testConfig(t, 512, vocoder.ModeAutotune, 0.99), vocoder.DefaultSettings(), Options{FallbackGain: 1})
	if err != nil {
		t.Fatal(err)
	}
	s.SetBypass(true)
	if !s.Bypassed() {
		t.Fatal("Bypassed() = false after SetBypass(true)")
	}
	if got := s.Tick(0.3); got != 0.3 {
		t.Errorf("bypassed output = %v, want 0.3", got)
	}
	s.SetBypass(false)
	if got := s.Tick(0.3); got != 0 {
		t.Errorf("output inside latency = %v, want 0", got)
	}
}

func TestStreamConcurrent(t *testing.T) {
	cfg := testConfig(t, 512, vocoder.ModeAutotune, 0)
	in := utils.GenerateSineWave(48000, 48000, 330, 0.3)

	ctl, err := NewController(cfg, vocoder.DefaultSettings(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, len(in))
	_ = ctl.ProcessBlock(in, want)

	s, err := New(cfg, vocoder.DefaultSettings(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	stats := s.Stats()
	got := make([]float64, len(in))
	for i, x := range in {
		got[i] = s.Tick(x)
		// Pace the producer so each frame lands before its deadline.
		for stats.Frames.Load()+stats.LateFrames.Load() < stats.Hops.Load() {
			runtime.Gosched()
		}
		if i == len(in)/2 {
			_ = s.SetSettings(vocoder.Settings{Key: 7, Octave: 2})
		}
	}
	cancel()
	wg.Wait()

	if st := stats.Snapshot(); st.Dropped() != 0 {
		t.Fatalf("dropped frames with a paced producer: %+v", st)
	}
	// Zero strength makes the settings change inaudible.
	diff, _ := utils.MaxAbsDiff(got, want)
	if diff > 1e-12 {
		t.Errorf("concurrent output differs from synchronous by %v", diff)
	}
	if s.Telemetry(false).Settings.Key != 7 {
		t.Error("settings change not picked up by the processing goroutine")
	}
}

func TestTickZeroAllocs(t *testing.T) {
	s, err := New(testConfig(t, 1024, vocoder.ModeVocode, 0.99), vocoder.DefaultSettings(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	allocs := testing.AllocsPerRun(2000, func() {
		s.Tick(0.1)
		s.Drain()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations per tick, got %.2f", allocs)
	}
}

func BenchmarkControllerProcessSample(b *testing.B) {
	ctl, _ := NewController(testConfig(b, 1024, vocoder.ModeAutotune, 0.99), vocoder.DefaultSettings(), Options{})
	in := utils.GenerateComplexWave(4096, 48000, 0.3)
	i := 0
	for b.Loop() {
		ctl.ProcessSample(in[i&4095])
		i++
	}
}

func TestMonitorPublishesLatestFrame(t *testing.T) {
	cfg := testConfig(t, 512, vocoder.ModeAutotune, 0.99)
	proc, err := vocoder.NewProcessor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	m := newMonitor(cfg)
	in := make([]float64, 512)
	s := vocoder.DefaultSettings()

	if tel := m.snapshot(false); tel.Frame != 0 || tel.Ratio != 1 {
		t.Fatalf("initial telemetry = %+v", tel)
	}
	for f := uint64(1); f <= 5; f++ {
		m.record(f, in, proc, s)
		if got := m.snapshot(false).Frame; got != f {
			t.Fatalf("Frame = %d, want %d", got, f)
		}
	}

	// Frames published between reads collapse to the newest.
	m.record(6, in, proc, s)
	m.record(7, in, proc, s)
	tel := m.snapshot(true)
	if tel.Frame != 7 || len(tel.Magnitudes) != 257 {
		t.Errorf("got frame %d with %d magnitudes, want 7 with 257", tel.Frame, len(tel.Magnitudes))
	}
	if got := m.snapshot(false).Frame; got != 7 {
		t.Errorf("repeated read = frame %d, want 7", got)
	}

	allocs := testing.AllocsPerRun(100, func() { m.record(8, in, proc, s) })
	if allocs > 0 {
		t.Errorf("Expected zero allocations per record, got %.2f", allocs)
	}
}

func TestMonitorConcurrentReaders(t *testing.T) {
	cfg := testConfig(t, 512, vocoder.ModeAutotune, 0.99)
	proc, err := vocoder.NewProcessor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	m := newMonitor(cfg)
	in := utils.GenerateSineWave(512, 48000, 440, 0.5)
	s := vocoder.DefaultSettings()

	const frames = 2000
	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			mags := make([]float64, 257)
			for {
				tel := m.snapshot(r == 0)
				if tel.Frame < last {
					t.Errorf("reader %d went back from frame %d to %d", r, last, tel.Frame)
					return
				}
				last = tel.Frame
				if n := m.MagnitudesInto(mags); n != 257 {
					t.Errorf("MagnitudesInto copied %d, want 257", n)
					return
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	for f := uint64(1); f <= frames; f++ {
		m.record(f, in, proc, s)
	}
	close(done)
	wg.Wait()

	if got := m.snapshot(false).Frame; got != frames {
		t.Errorf("final frame = %d, want %d", got, frames)
	}
}
