// Package tui holds the terminal interfaces: a device picker shown before
// the engine starts and a live monitor for a running voice stream.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vocalfx/internal/scale"
	"vocalfx/internal/stream"
	"vocalfx/internal/vocoder"
)

const defaultRefresh = 50 * time.Millisecond

// Voice is the part of stream.Stream the monitor reads and controls.
type Voice interface {
	Telemetry(withSpectrum bool) stream.Telemetry
	Stats() *stream.Stats
	Settings() vocoder.Settings
	SetSettings(vocoder.Settings) error
	SetBypass(on bool)
	Bypassed() bool
}

var _ Voice = (*stream.Stream)(nil)

// Recorder toggles output recording. audio.Engine implements it.
type Recorder interface {
	Recording() bool
	StartRecording(path string) error
	StopRecording() error
}

// MonitorOptions configure NewMonitor. Zero values are usable.
type MonitorOptions struct {
	Title      string
	Refresh    time.Duration
	Recorder   Recorder      // nil disables the record key
	RecordPath func() string // file name for each new recording
}

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676")).Width(9)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	bypassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#C0392B")).
			Padding(0, 1)
	recordStyle = bypassStyle.Background(lipgloss.Color("#E67E22"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0392B"))
)

var bandGlyphs = []rune("▁▂▃▄▅▆▇█")

type tickMsg time.Time

// Monitor is the Bubble Tea model for a running stream.
type Monitor struct {
	voice Voice
	opts  MonitorOptions
	keys  monitorKeys
	help  help.Model
	level progress.Model

	tel    stream.Telemetry
	stats  stream.StatsSnapshot
	status string
	err    error
}

// NewMonitor creates a monitor over v.
func NewMonitor(v Voice, opts MonitorOptions) Monitor {
	if opts.Title == "" {
		opts.Title = "vocalfx"
	}
	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefresh
	}
	if opts.RecordPath == nil {
		opts.RecordPath = func() string {
			return "vocalfx-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
		}
	}
	return Monitor{
		voice: v,
		opts:  opts,
		keys:  newMonitorKeys(),
		help:  help.New(),
		level: progress.New(
			progress.WithSolidFill("#25A065"),
			progress.WithoutPercentage(),
			progress.WithWidth(32),
		),
		tel: v.Telemetry(false),
	}
}

func (m Monitor) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh timer.
func (m Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		m.tel = m.voice.Telemetry(false)
		m.stats = m.voice.Stats().Snapshot()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.voice.Settings()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Bypass):
		m.voice.SetBypass(!m.voice.Bypassed())
		return m, nil
	case key.Matches(msg, m.keys.Record):
		m.toggleRecording()
		return m, nil
	case key.Matches(msg, m.keys.KeyUp):
		s.Key = (s.Key + 1) % scale.Keys
	case key.Matches(msg, m.keys.KeyDown):
		s.Key = (s.Key + scale.Keys - 1) % scale.Keys
	case key.Matches(msg, m.keys.OctaveUp):
		s.Octave++
	case key.Matches(msg, m.keys.OctaveDown):
		s.Octave--
	case key.Matches(msg, m.keys.Note):
		s.Note = int(msg.String()[0] - '0')
	case key.Matches(msg, m.keys.Formant):
		s.Formant = (s.Formant + 1) % (vocoder.FormantRaise + 1)
	default:
		return m, nil
	}

	if err := m.voice.SetSettings(s); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.status = fmt.Sprintf("%s, note %s, octave %d", scale.Label(s.Key), noteLabel(s), s.Octave)
	return m, nil
}

func (m *Monitor) toggleRecording() {
	r := m.opts.Recorder
	if r == nil {
		m.status = "recording is not available"
		return
	}
	if r.Recording() {
		if err := r.StopRecording(); err != nil {
			m.err = err
			return
		}
		m.status = "recording stopped"
		return
	}
	path := m.opts.RecordPath()
	if err := r.StartRecording(path); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = "recording to " + path
}

func (m Monitor) View() string {
	s := m.voice.Settings()
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.opts.Title))
	if m.voice.Bypassed() {
		b.WriteString(" " + bypassStyle.Render("BYPASS"))
	}
	if r := m.opts.Recorder; r != nil && r.Recording() {
		b.WriteString(" " + recordStyle.Render("REC"))
	}
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Mode", m.tel.Mode)
	row("Key", scale.Label(s.Key))
	row("Note", noteLabel(s))
	row("Octave", fmt.Sprint(s.Octave))
	row("Formant", formantLabel(s.Formant))
	b.WriteString("\n")

	row("Pitch", pitchLabel(m.tel))
	row("Ratio", fmt.Sprintf("%.3f", m.tel.Ratio))
	b.WriteString(labelStyle.Render("Level") + m.level.ViewAs(levelFraction(m.tel.Level)) + "\n")
	b.WriteString(labelStyle.Render("Bands") + bandBars(m.tel.Bands) + "\n\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf("frames %d  dropped %d  held %d  errors %d",
		m.stats.Frames, m.stats.Dropped(), m.stats.SkippedCorrections, m.stats.Errors)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(infoStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func noteLabel(s vocoder.Settings) string {
	if s.Note == 0 {
		return "auto"
	}
	return fmt.Sprintf("%d (%s)", s.Note, scale.NoteName(s.Key, s.Note))
}

func formantLabel(f int) string {
	switch f {
	case vocoder.FormantLower:
		return "lower"
	case vocoder.FormantRaise:
		return "raise"
	}
	return "none"
}

func pitchLabel(t stream.Telemetry) string {
	if t.Detected <= 0 {
		return "--"
	}
	out := fmt.Sprintf("%.1f Hz", t.Detected)
	if t.Note != "" {
		out += fmt.Sprintf(" (%s%d)", t.Note, t.Octave)
	}
	if t.Target > 0 {
		out += fmt.Sprintf(" → %.1f Hz", t.Target)
	}
	if t.Skipped {
		out += " held"
	}
	return out
}

// levelFraction maps an RMS level onto a 60 dB meter.
func levelFraction(rms float64) float64 {
	if rms <= 0 {
		return 0
	}
	db := 20 * math.Log10(rms)
	return min(max((db+60)/60, 0), 1)
}

func bandBars(bands []float64) string {
	if len(bands) == 0 {
		return dimStyle.Render("--")
	}
	out := make([]rune, len(bands))
	top := len(bandGlyphs) - 1
	for i, v := range bands {
		g := int(math.Round(min(max(v, 0), 1) * float64(top)))
		out[i] = bandGlyphs[g]
	}
	return highlightStyle.Render(string(out))
}

// RunMonitor runs the monitor full screen until the user quits or ctx is
// cancelled.
func RunMonitor(ctx context.Context, v Voice, opts MonitorOptions) error {
	p := tea.NewProgram(NewMonitor(v, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
