// SPDX-License-Identifier: MIT
package stream

import (
	"sync"
	"sync/atomic"

	"vocalfx/internal/analysis"
	"vocalfx/internal/scale"
	"vocalfx/internal/vocoder"
)

// Telemetry describes the most recent processed frame.
type Telemetry struct {
	Frame      uint64           `json:"frame"`
	Mode       string           `json:"mode"`
	Settings   vocoder.Settings `json:"settings"`
	Key        string           `json:"key"`
	Detected   float64          `json:"detected_hz"`
	Target     float64          `json:"target_hz"`
	Ratio      float64          `json:"ratio"`
	Note       string           `json:"note"`
	Octave     int              `json:"octave"`
	Skipped    bool             `json:"skipped"`
	Level      float64          `json:"level"`
	Bands      []float64        `json:"bands"`
	Magnitudes []float64        `json:"magnitudes,omitempty"`
}

// monitor publishes the latest Telemetry through a triple buffer. The
// processing goroutine fills the back slot and swaps it into the middle;
// readers swap a fresh middle out to their front slot. The writer never
// blocks: readMu only orders readers among themselves.
type monitor struct {
	sampleRate float64
	fftSize    int
	bands      []analysis.Band

	slots [3]Telemetry
	back  int           // writer-owned
	mid   atomic.Uint32 // slot index, freshSlot when unread

	readMu sync.Mutex
	front  int // reader-owned
}

const freshSlot = 1 << 2

var _ analysis.SpectrumProvider = (*monitor)(nil)

func newMonitor(cfg vocoder.Config) *monitor {
	bands := analysis.DefaultBands(cfg.SampleRate)
	m := &monitor{
		sampleRate: cfg.SampleRate,
		fftSize:    cfg.FFTSize,
		bands:      bands,
		back:       0,
		front:      2,
	}
	m.mid.Store(1)
	for i := range m.slots {
		m.slots[i] = Telemetry{
			Mode:       cfg.Mode.String(),
			Ratio:      1,
			Bands:      make([]float64, len(bands)),
			Magnitudes: make([]float64, cfg.Bins()),
		}
	}
	return m
}

// record stores the outcome of one frame without allocating or locking.
func (m *monitor) record(frame uint64, in []float64, proc *vocoder.Processor, s vocoder.Settings) {
	d := proc.LastDetection()
	mags := proc.Magnitudes()

	name, octave := scale.PitchClass(d.Target)
	if d.Target == 0 {
		name, octave = scale.PitchClass(d.Detected)
	}

	t := &m.slots[m.back]
	t.Frame = frame
	t.Settings = s
	t.Key = scale.Label(s.Key)
	t.Detected = d.Detected
	t.Target = d.Target
	t.Ratio = d.Ratio
	t.Note = name
	t.Octave = octave
	t.Skipped = d.Skipped
	t.Level = analysis.Level(in)
	copy(t.Magnitudes, mags)
	analysis.BandEnergies(t.Bands, mags, m.bands, m.sampleRate, m.fftSize)

	m.back = int(m.mid.Swap(uint32(m.back)|freshSlot) &^ freshSlot)
}

// latest moves the newest published slot to the front and returns it.
// Callers hold readMu.
func (m *monitor) latest() *Telemetry {
	if m.mid.Load()&freshSlot != 0 {
		m.front = int(m.mid.Swap(uint32(m.front)) &^ freshSlot)
	}
	return &m.slots[m.front]
}

// snapshot returns a deep copy. withSpectrum controls whether magnitudes
// are included.
func (m *monitor) snapshot(withSpectrum bool) Telemetry {
	m.readMu.Lock()
	defer m.readMu.Unlock()
	cur := m.latest()
	t := *cur
	t.Bands = append([]float64(nil), cur.Bands...)
	if withSpectrum {
		t.Magnitudes = append([]float64(nil), cur.Magnitudes...)
	} else {
		t.Magnitudes = nil
	}
	return t
}

func (m *monitor) MagnitudesInto(dst []float64) int {
	m.readMu.Lock()
	defer m.readMu.Unlock()
	return copy(dst, m.latest().Magnitudes)
}

func (m *monitor) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin > m.fftSize/2 {
		return 0
	}
	return analysis.BinFrequency(float64(bin), m.sampleRate, m.fftSize)
}

func (m *monitor) FFTSize() int        { return m.fftSize }
func (m *monitor) SampleRate() float64 { return m.sampleRate }
