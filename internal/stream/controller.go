// SPDX-License-Identifier: MIT

/*
Package stream turns the frame-based vocoder into a sample stream.

Input samples are pushed into a ring; every hop the newest frame is
processed and overlap-added into an output ring that runs a fixed latency
(one frame plus two hops) behind the input. Controller does this inline on
the caller's goroutine. Stream splits it across a real-time producer, which
never blocks or allocates, and a processing goroutine.
*/
package stream

import (
	"fmt"
	"sync/atomic"

	"vocalfx/internal/ring"
	"vocalfx/internal/scale"
	"vocalfx/internal/vocoder"
	"vocalfx/pkg/bitint"
)

// DefaultFallbackGain attenuates pass-through audio substituted for frames
// that could not be processed.
const DefaultFallbackGain = 0.8

// Options tune a Controller or Stream. Zero values select defaults.
type Options struct {
	FallbackGain float64
	QueueDepth   int // Stream job queue depth, rounded up to a power of two
	Waveform     vocoder.Waveform
}

func (o Options) withDefaults() Options {
	if o.FallbackGain <= 0 {
		o.FallbackGain = DefaultFallbackGain
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 8
	}
	o.QueueDepth = bitint.NextPowerOfTwo(o.QueueDepth)
	return o
}

// core is the state shared by Controller and Stream.
type core struct {
	cfg  vocoder.Config
	opts Options
	proc *vocoder.Processor
	st   *vocoder.State

	in  *ring.Buffer // input samples
	aux *ring.Buffer // carrier or synth samples
	out *ring.Buffer // overlap-add output, latency ahead of the reader

	n, hop, latency uint32

	frame    []float64
	auxFrame []float64
	y        []float64

	osc      *vocoder.Oscillator
	settings atomic.Pointer[vocoder.Settings]

	frames uint64
	stats  Stats
	mon    *monitor
}

func newCore(cfg vocoder.Config, s vocoder.Settings, opts Options) (*core, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	proc, err := vocoder.NewProcessor(cfg)
	if err != nil {
		return nil, err
	}
	cfg = proc.Config()
	opts = opts.withDefaults()

	n := cfg.FFTSize
	latency := cfg.Latency()
	capacity := bitint.NextPowerOfTwo(2 * (n + latency))

	in, err := ring.New(capacity)
	if err != nil {
		return nil, err
	}
	aux, err := ring.New(capacity)
	if err != nil {
		return nil, err
	}
	out, err := ring.WithOffset(capacity, uint32(latency))
	if err != nil {
		return nil, err
	}

	c := &core{
		cfg:      cfg,
		opts:     opts,
		proc:     proc,
		st:       proc.NewState(),
		in:       in,
		aux:      aux,
		out:      out,
		n:        uint32(n),
		hop:      uint32(cfg.HopSize),
		latency:  uint32(latency),
		frame:    make([]float64, n),
		auxFrame: make([]float64, n),
		y:        make([]float64, n),
		osc:      vocoder.NewOscillator(0, cfg.SampleRate, opts.Waveform),
		mon:      newMonitor(cfg),
	}
	c.settings.Store(&s)
	c.tuneOscillator(s)
	return c, nil
}

// carrierFrequency is the oscillator pitch for s. Without a selected note
// the key's tonic is used so vocode always has a carrier.
func carrierFrequency(s vocoder.Settings) float64 {
	note := s.Note
	if note == 0 {
		note = 1
	}
	return scale.Frequency(s.Key, note, s.Octave, true)
}

func (c *core) tuneOscillator(s vocoder.Settings) {
	c.osc.SetFrequency(carrierFrequency(s))
}

func (c *core) setSettings(s vocoder.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.settings.Store(&s)
	return nil
}

// renderFrame processes the frame that ends at input cursor w into c.y.
func (c *core) renderFrame(w uint32, s vocoder.Settings) error {
	c.in.BlockFrom(w, c.frame)
	c.aux.BlockFrom(w, c.auxFrame)

	var aux []float64
	switch c.cfg.Mode {
	case vocoder.ModeVocode:
		aux = c.auxFrame
	case vocoder.ModeDry:
		if s.Note != 0 {
			aux = c.auxFrame
		}
	}
	if err := c.proc.Process(c.y, c.frame, aux, c.st, s); err != nil {
		c.stats.Errors.Add(1)
		return err
	}
	return nil
}

// firstOutput is the output slot of the first sample of the frame ending at w.
func (c *core) firstOutput(w uint32) uint32 {
	return w - c.n + c.latency
}

// overlapAdd writes c.y for the frame ending at w. The newest hop of a frame
// is the first write any of its slots receive, so it overwrites; earlier
// hops accumulate.
func (c *core) overlapAdd(w uint32) {
	base := c.firstOutput(w)
	tail := c.n - c.hop
	for i := uint32(0); i < tail; i++ {
		c.out.AddAt(base+i, c.y[i])
	}
	for i := tail; i < c.n; i++ {
		c.out.SetAt(base+i, c.y[i])
	}
}

// finishFrame records counters and telemetry for a written frame.
func (c *core) finishFrame(s vocoder.Settings) {
	c.frames++
	c.stats.Frames.Add(1)
	if c.cfg.Mode == vocoder.ModeAutotune && c.proc.LastDetection().Skipped {
		c.stats.SkippedCorrections.Add(1)
	}
	c.mon.record(c.frames, c.frame, c.proc, s)
}

func (c *core) reset() {
	c.in.Reset(0)
	c.aux.Reset(0)
	c.out.Reset(c.latency)
	c.st.Reset()
}

// Controller runs the whole pipeline on the calling goroutine: every call
// to ProcessSample pushes one sample, processes a frame on hop boundaries,
// and returns one output sample delayed by Latency.
type Controller struct {
	c        *core
	sinceHop uint32
}

// NewController builds a Controller for cfg starting with settings s.
func NewController(cfg vocoder.Config, s vocoder.Settings, opts Options) (*Controller, error) {
	c, err := newCore(cfg, s, opts)
	if err != nil {
		return nil, err
	}
	return &Controller{c: c}, nil
}

// Latency is the input-to-output delay in samples.
func (ctl *Controller) Latency() int { return int(ctl.c.latency) }

// Config returns the validated engine configuration.
func (ctl *Controller) Config() vocoder.Config { return ctl.c.cfg }

// Settings returns the active musical settings.
func (ctl *Controller) Settings() vocoder.Settings { return *ctl.c.settings.Load() }

// SetSettings validates and applies s from the next hop on.
func (ctl *Controller) SetSettings(s vocoder.Settings) error { return ctl.c.setSettings(s) }

// Stats returns the live counters.
func (ctl *Controller) Stats() *Stats { return &ctl.c.stats }

// Telemetry returns the most recent frame's telemetry.
func (ctl *Controller) Telemetry(withSpectrum bool) Telemetry { return ctl.c.mon.snapshot(withSpectrum) }

// ProcessSample feeds x with the internal oscillator as auxiliary input.
func (ctl *Controller) ProcessSample(x float64) float64 {
	return ctl.tick(x, ctl.c.osc.Next())
}

// ProcessSampleAux feeds x with an external carrier or synth sample.
func (ctl *Controller) ProcessSampleAux(x, aux float64) float64 {
	return ctl.tick(x, aux)
}

func (ctl *Controller) tick(x, a float64) float64 {
	c := ctl.c
	c.in.Push(x)
	c.aux.Push(a)
	c.stats.Samples.Add(1)

	ctl.sinceHop++
	if ctl.sinceHop == c.hop {
		ctl.sinceHop = 0
		c.stats.Hops.Add(1)

		s := *c.settings.Load()
		c.tuneOscillator(s)
		w := c.in.WriteIndex()
		if err := c.renderFrame(w, s); err == nil {
			c.overlapAdd(w)
			c.finishFrame(s)
		}
	}
	return c.out.Pop()
}

// ProcessBlock runs ProcessSample over in. When the lengths differ nothing
// is processed: the overlapping prefix of out receives attenuated input and
// ErrBufferSizeMismatch is returned.
func (ctl *Controller) ProcessBlock(in, out []float64) error {
	if len(in) != len(out) {
		ctl.passThrough(in, out)
		return fmt.Errorf("%w: input %d samples, output %d", vocoder.ErrBufferSizeMismatch, len(in), len(out))
	}
	for i, x := range in {
		out[i] = ctl.ProcessSample(x)
	}
	return nil
}

// ProcessBlockAux is ProcessBlock with an external auxiliary signal.
func (ctl *Controller) ProcessBlockAux(in, aux, out []float64) error {
	if len(in) != len(out) || len(aux) != len(in) {
		ctl.passThrough(in, out)
		return fmt.Errorf("%w: input %d, aux %d, output %d samples",
			vocoder.ErrBufferSizeMismatch, len(in), len(aux), len(out))
	}
	for i, x := range in {
		out[i] = ctl.ProcessSampleAux(x, aux[i])
	}
	return nil
}

func (ctl *Controller) passThrough(in, out []float64) {
	n := min(len(in), len(out))
	g := ctl.c.opts.FallbackGain
	for i := range n {
		out[i] = in[i] * g
	}
	ctl.c.stats.BypassedSamples.Add(uint64(n))
}

// Flush returns the Latency samples still buffered, as if silence followed.
func (ctl *Controller) Flush() []float64 {
	tail := make([]float64, ctl.c.latency)
	for i := range tail {
		tail[i] = ctl.ProcessSample(0)
	}
	return tail
}

// Reset clears the rings and the vocoder state. Counters are kept.
func (ctl *Controller) Reset() {
	ctl.c.reset()
	ctl.sinceHop = 0
}
