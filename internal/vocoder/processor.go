// SPDX-License-Identifier: MIT

/*
Package vocoder is the per-frame phase-vocoder pipeline: analysis, pitch
decision, spectral remapping and overlap-add ready synthesis for the
autotune, vocode and dry modes.

A Processor owns only scratch memory; everything that must survive between
frames lives in a State supplied by the caller. Neither type is safe for
concurrent use. After construction no method allocates when the gonum
transform backend is used.
*/
package vocoder

import (
	"fmt"
	"math"

	"vocalfx/internal/analysis"
	"vocalfx/internal/fft"
)

// Synth blend used by dry mode when a note is selected.
const (
	dryVocalMix = 0.96
	drySynthMix = 0.04
)

// Processor runs one frame at a time.
type Processor struct {
	cfg       Config
	tr        fft.Transform
	win       []float64
	gain      float64
	phaseStep float64 // 2π·hop/N

	analyzer *analysis.Analyzer
	env      *analysis.Envelope
	pitch    PitchEngine

	frame   []float64    // windowed input, N
	spec    []complex128 // half spectrum, N/2+1
	carrier []complex128 // half spectrum of the carrier, N/2+1
	full    []complex128 // Hermitian spectrum, N
	out     []float64    // inverse transform output, N
	mags    []float64
	freqs   []float64

	last Detection
}

// NewProcessor validates cfg and preallocates every buffer the pipeline
// needs.
func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tr, err := fft.New(cfg.Backend, cfg.FFTSize)
	if err != nil {
		return nil, err
	}
	win, err := fft.NewWindow(cfg.Backend, cfg.Window, cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	n, bins := cfg.FFTSize, cfg.Bins()
	return &Processor{
		cfg:       cfg,
		tr:        tr,
		win:       win,
		gain:      fft.GainCompensation(win, cfg.HopSize),
		phaseStep: 2 * math.Pi * float64(cfg.HopSize) / float64(n),
		analyzer:  analysis.NewAnalyzer(n, cfg.HopSize),
		env:       analysis.NewEnvelope(tr),
		pitch:     NewPitchEngine(cfg),
		frame:     make([]float64, n),
		spec:      make([]complex128, bins),
		carrier:   make([]complex128, bins),
		full:      make([]complex128, n),
		out:       make([]float64, n),
		mags:      make([]float64, bins),
		freqs:     make([]float64, bins),
		last:      Detection{Ratio: 1},
	}, nil
}

// Config returns the validated configuration.
func (p *Processor) Config() Config { return p.cfg }

// Gain returns the overlap-add gain compensation in use.
func (p *Processor) Gain() float64 { return p.gain }

// LastDetection returns the pitch decision of the most recent frame.
func (p *Processor) LastDetection() Detection { return p.last }

// Magnitudes returns the analysis magnitudes of the most recent frame. The
// slice is reused by the next call.
func (p *Processor) Magnitudes() []float64 { return p.mags }

// NewState returns a State sized for this processor.
func (p *Processor) NewState() *State { return NewState(p.cfg) }

func (p *Processor) check(st *State, bufs ...[]float64) error {
	n := p.cfg.FFTSize
	for _, b := range bufs {
		if len(b) != n {
			return fmt.Errorf("%w: got %d samples, want %d", ErrBufferSizeMismatch, len(b), n)
		}
	}
	if st == nil || !st.fits(p.cfg.Bins()) {
		return fmt.Errorf("%w: state not sized for %d-point transform", ErrBufferSizeMismatch, n)
	}
	return nil
}

// analyze windows src, transforms it into p.spec and runs phase analysis
// against st.
func (p *Processor) analyze(src []float64, st *State) {
	for i, x := range src {
		p.frame[i] = x * p.win[i]
	}
	p.tr.Forward(p.spec, p.frame)
	p.analyzer.Analyze(p.spec, st.LastInputPhases, p.mags, p.freqs)
}

// Autotune pulls the frame's fundamental towards the selected note.
func (p *Processor) Autotune(dst, frame []float64, st *State, s Settings) error {
	if err := p.check(st, dst, frame); err != nil {
		return err
	}
	p.analyze(frame, st)

	// A failed target lookup still renders with the held ratio.
	d, _ := p.pitch.Ratio(p.mags, p.freqs, st, s)
	p.last = d

	p.remapShift(st, d.Ratio, shiftFormantRatio(s.Formant), s.Formant != FormantNone)
	p.synthesizePhases(st)
	p.inverse()
	p.render(dst)
	return nil
}

// Vocode imposes the vocal's magnitude spectrum on the carrier.
func (p *Processor) Vocode(dst, vocal, carrier []float64, st *State, s Settings) error {
	if err := p.check(st, dst, vocal, carrier); err != nil {
		return err
	}
	p.analyze(vocal, st)
	p.last = Detection{Ratio: 1, Skipped: true}

	for i, x := range carrier {
		p.frame[i] = x * p.win[i]
	}
	p.tr.Forward(p.carrier, p.frame)
	p.remapVocode()

	p.inverse()
	p.render(dst)
	return nil
}

// Dry shifts by a fixed octave ratio and optional formant change, without
// pitch correction. synth may be nil; when present and a note is selected
// it is blended under the voice.
func (p *Processor) Dry(dst, frame, synth []float64, st *State, s Settings) error {
	if err := p.check(st, dst, frame); err != nil {
		return err
	}
	if synth != nil && len(synth) != p.cfg.FFTSize {
		return fmt.Errorf("%w: synth has %d samples, want %d", ErrBufferSizeMismatch, len(synth), p.cfg.FFTSize)
	}
	p.analyze(frame, st)

	ratio := dryPitchRatio(s.Octave)
	st.PreviousRatio, st.GlideRatio = ratio, ratio
	bin, detected := p.pitch.Detect(p.mags, p.freqs)
	p.last = Detection{Bin: bin, Detected: detected, Ratio: ratio, Skipped: true}

	if s.Formant == FormantNone && math.Abs(ratio-1) < 0.01 {
		// p.spec still holds the analysis spectrum.
		copy(st.LastOutputPhases, st.LastInputPhases)
	} else {
		p.remapShift(st, ratio, dryFormantRatio(s.Formant), s.Formant != FormantNone)
		p.synthesizePhases(st)
	}
	p.inverse()

	if s.Note != 0 && synth != nil {
		for i, v := range synth {
			p.out[i] = dryVocalMix*p.out[i] + drySynthMix*v
		}
	}
	p.render(dst)
	return nil
}

// Process dispatches to the configured mode. aux is the carrier for vocode
// and the optional synth for dry; autotune ignores it.
func (p *Processor) Process(dst, frame, aux []float64, st *State, s Settings) error {
	switch p.cfg.Mode {
	case ModeVocode:
		if aux == nil {
			return fmt.Errorf("%w: vocode needs a carrier", ErrBufferSizeMismatch)
		}
		return p.Vocode(dst, frame, aux, st, s)
	case ModeDry:
		return p.Dry(dst, frame, aux, st, s)
	default:
		return p.Autotune(dst, frame, st, s)
	}
}
