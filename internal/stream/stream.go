// SPDX-License-Identifier: MIT
package stream

import (
	"context"
	"sync/atomic"
	"time"

	"vocalfx/internal/analysis"
	"vocalfx/internal/log"
	"vocalfx/internal/ring"
	"vocalfx/internal/vocoder"
)

// reportInterval throttles overload warnings from the processing goroutine.
const reportInterval = time.Second

// Stream is the concurrent controller. Tick and TickAux belong to exactly
// one real-time producer; Run belongs to exactly one processing goroutine.
//
// The producer never blocks: at each hop it publishes the sample count on a
// lock-free job ring and rings a one-slot doorbell channel without waiting.
// If the job ring is full, or a frame finishes after the output has already
// passed its first sample, the affected latency window is replaced by
// attenuated pass-through.
type Stream struct {
	c    *core
	jobs *ring.Buffer // sample counts at hop boundaries
	bell chan struct{}
	log  *log.Logger

	// producer-owned
	ticks    uint64
	sinceHop uint32

	bypass      atomic.Bool   // manual bypass
	bypassUntil atomic.Uint64 // tick count before which output is pass-through
}

// New builds a Stream for cfg starting with settings s.
func New(cfg vocoder.Config, s vocoder.Settings, opts Options) (*Stream, error) {
	c, err := newCore(cfg, s, opts)
	if err != nil {
		return nil, err
	}
	jobs, err := ring.New(c.opts.QueueDepth)
	if err != nil {
		return nil, err
	}
	return &Stream{
		c:    c,
		jobs: jobs,
		bell: make(chan struct{}, 1),
		log:  log.Named("stream"),
	}, nil
}

// Latency is the input-to-output delay in samples.
func (s *Stream) Latency() int { return int(s.c.latency) }

// Config returns the validated engine configuration.
func (s *Stream) Config() vocoder.Config { return s.c.cfg }

// Settings returns the active musical settings.
func (s *Stream) Settings() vocoder.Settings { return *s.c.settings.Load() }

// SetSettings validates s and publishes it; the processing goroutine picks
// it up at its next hop. Safe to call from any goroutine.
func (s *Stream) SetSettings(v vocoder.Settings) error { return s.c.setSettings(v) }

// SetBypass switches the output to attenuated pass-through.
func (s *Stream) SetBypass(on bool) { s.bypass.Store(on) }

// Bypassed reports the manual bypass switch.
func (s *Stream) Bypassed() bool { return s.bypass.Load() }

// Stats returns the live counters.
func (s *Stream) Stats() *Stats { return &s.c.stats }

// Telemetry returns the most recent frame's telemetry.
func (s *Stream) Telemetry(withSpectrum bool) Telemetry { return s.c.mon.snapshot(withSpectrum) }

// Spectrum exposes the latest magnitudes to readers.
func (s *Stream) Spectrum() analysis.SpectrumProvider { return s.c.mon }

// Tick feeds x with the internal oscillator as auxiliary input.
func (s *Stream) Tick(x float64) float64 {
	return s.TickAux(x, s.c.osc.Next())
}

// TickAux feeds x with an external carrier or synth sample and returns one
// output sample. It never blocks, locks or allocates.
func (s *Stream) TickAux(x, a float64) float64 {
	c := s.c
	c.in.Push(x)
	c.aux.Push(a)
	s.ticks++
	t := s.ticks
	c.stats.Samples.Add(1)

	s.sinceHop++
	if s.sinceHop == c.hop {
		s.sinceHop = 0
		c.stats.Hops.Add(1)
		c.tuneOscillator(*c.settings.Load())

		if s.jobs.Available() >= uint32(s.jobs.Cap()) {
			c.stats.Overruns.Add(1)
			s.extendBypass(t + uint64(c.latency) + 1)
		} else {
			s.jobs.Push(float64(t))
			select {
			case s.bell <- struct{}{}:
			default:
			}
		}
	}

	y := c.out.Pop()
	if s.bypass.Load() || t < s.bypassUntil.Load() {
		c.stats.BypassedSamples.Add(1)
		return x * c.opts.FallbackGain
	}
	return y
}

// ProcessBlock runs Tick over in. Length mismatches fall back to
// attenuated pass-through like Controller.ProcessBlock.
func (s *Stream) ProcessBlock(in, out []float64) error {
	if len(in) != len(out) {
		n := min(len(in), len(out))
		for i := range n {
			out[i] = in[i] * s.c.opts.FallbackGain
		}
		s.c.stats.BypassedSamples.Add(uint64(n))
		return vocoder.ErrBufferSizeMismatch
	}
	for i, x := range in {
		out[i] = s.Tick(x)
	}
	return nil
}

// extendBypass moves the bypass deadline forward to until, never back.
func (s *Stream) extendBypass(until uint64) {
	for {
		cur := s.bypassUntil.Load()
		if cur >= until || s.bypassUntil.CompareAndSwap(cur, until) {
			return
		}
	}
}

// Run processes queued frames until ctx is done.
func (s *Stream) Run(ctx context.Context) error {
	s.log.Infof("processing %s frames: fft %d, hop %d, latency %d samples",
		s.c.cfg.Mode, s.c.n, s.c.hop, s.c.latency)

	report := time.NewTicker(reportInterval)
	defer report.Stop()
	var reported StatsSnapshot

	for {
		s.Drain()
		select {
		case <-ctx.Done():
			s.log.Debugf("stopped after %d frames", s.c.stats.Frames.Load())
			return nil
		case <-s.bell:
		case <-report.C:
			reported = s.reportOverload(reported)
		}
	}
}

// Drain processes every queued frame and returns how many were handled.
// Run calls it on each doorbell; tests may call it directly in place of Run.
func (s *Stream) Drain() int {
	n := 0
	for s.jobs.Available() > 0 {
		s.process(uint64(s.jobs.Pop()))
		n++
	}
	return n
}

func (s *Stream) process(t uint64) {
	c := s.c
	w := uint32(t)
	set := *c.settings.Load()

	if err := c.renderFrame(w, set); err != nil {
		s.extendBypass(t + uint64(c.latency) + 1)
		return
	}
	// The producer already consumed the first slot of this frame.
	if int32(c.firstOutput(w)-c.out.ReadIndex()) <= 0 {
		c.stats.LateFrames.Add(1)
		s.extendBypass(t + uint64(c.latency) + 1)
		return
	}
	c.overlapAdd(w)
	c.finishFrame(set)
}

func (s *Stream) reportOverload(prev StatsSnapshot) StatsSnapshot {
	now := s.c.stats.Snapshot()
	if d := now.Dropped() - prev.Dropped(); d > 0 {
		s.log.Warnf("dropped %d frames (%d overruns, %d late) in the last %s",
			d, now.Overruns-prev.Overruns, now.LateFrames-prev.LateFrames, reportInterval)
	}
	if e := now.Errors - prev.Errors; e > 0 {
		s.log.Errorf("%d frames rejected by the processor", e)
	}
	return now
}
