package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"vocalfx/internal/audio"
	"vocalfx/internal/stream"
	"vocalfx/internal/vocoder"
)

type fakeVoice struct {
	settings vocoder.Settings
	bypass   bool
	stats    stream.Stats
	tel      stream.Telemetry
}

func (v *fakeVoice) Telemetry(bool) stream.Telemetry { return v.tel }
func (v *fakeVoice) Stats() *stream.Stats             { return &v.stats }
func (v *fakeVoice) Settings() vocoder.Settings       { return v.settings }
func (v *fakeVoice) SetBypass(on bool)                { v.bypass = on }
func (v *fakeVoice) Bypassed() bool                   { return v.bypass }

func (v *fakeVoice) SetSettings(s vocoder.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	v.settings = s
	return nil
}

type fakeRecorder struct {
	on    bool
	path  string
	fail  error
	stops int
}

func (r *fakeRecorder) Recording() bool { return r.on }

func (r *fakeRecorder) StartRecording(path string) error {
	if r.fail != nil {
		return r.fail
	}
	r.on, r.path = true, path
	return nil
}

func (r *fakeRecorder) StopRecording() error {
	r.on = false
	r.stops++
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Monitor, msg tea.Msg) (Monitor, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Monitor), cmd
}

func TestMonitorSettingsKeys(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want vocoder.Settings
	}{
		{"next key", tea.KeyMsg{Type: tea.KeyRight}, vocoder.Settings{Key: 1, Octave: 2}},
		{"prev key wraps", tea.KeyMsg{Type: tea.KeyLeft}, vocoder.Settings{Key: 23, Octave: 2}},
		{"octave up", tea.KeyMsg{Type: tea.KeyUp}, vocoder.Settings{Octave: 3}},
		{"octave down vim", runes("j"), vocoder.Settings{Octave: 1}},
		{"note", runes("5"), vocoder.Settings{Note: 5, Octave: 2}},
		{"formant", runes("f"), vocoder.Settings{Octave: 2, Formant: vocoder.FormantLower}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVoice{settings: vocoder.DefaultSettings()}
			m, cmd := press(t, NewMonitor(v, MonitorOptions{}), tt.msg)
			if cmd != nil {
				t.Error("settings keys should not return a command")
			}
			if v.settings != tt.want {
				t.Errorf("settings = %+v, want %+v", v.settings, tt.want)
			}
			if m.err != nil || m.status == "" {
				t.Errorf("status %q, err %v", m.status, m.err)
			}
		})
	}
}

func TestMonitorRejectedSettings(t *testing.T) {
	v := &fakeVoice{settings: vocoder.Settings{Octave: 8}}
	m, _ := press(t, NewMonitor(v, MonitorOptions{}), tea.KeyMsg{Type: tea.KeyUp})

	if v.settings.Octave != 8 {
		t.Errorf("octave = %d, want 8", v.settings.Octave)
	}
	var ce *vocoder.ConfigError
	if !errors.As(m.err, &ce) || ce.Field != "octave" {
		t.Fatalf("err = %v, want an octave ConfigError", m.err)
	}
	if !strings.Contains(m.View(), "octave") {
		t.Error("view does not show the error")
	}
}

func TestMonitorBypassHelpQuit(t *testing.T) {
	v := &fakeVoice{settings: vocoder.DefaultSettings()}
	m := NewMonitor(v, MonitorOptions{})

	m, _ = press(t, m, runes("b"))
	if !v.bypass {
		t.Fatal("bypass not enabled")
	}
	if !strings.Contains(m.View(), "BYPASS") {
		t.Error("view does not flag bypass")
	}
	m, _ = press(t, m, runes("b"))
	if v.bypass {
		t.Error("bypass not toggled off")
	}

	m, _ = press(t, m, runes("?"))
	if !m.help.ShowAll {
		t.Error("help not expanded")
	}

	_, cmd := press(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestMonitorRecording(t *testing.T) {
	v := &fakeVoice{settings: vocoder.DefaultSettings()}

	m, _ := press(t, NewMonitor(v, MonitorOptions{}), runes("r"))
	if m.status != "recording is not available" {
		t.Errorf("status = %q", m.status)
	}

	rec := &fakeRecorder{}
	m = NewMonitor(v, MonitorOptions{Recorder: rec, RecordPath: func() string { return "take.wav" }})
	m, _ = press(t, m, runes("r"))
	if !rec.on || rec.path != "take.wav" {
		t.Fatalf("recorder = %+v", rec)
	}
	if !strings.Contains(m.View(), "REC") {
		t.Error("view does not flag recording")
	}
	m, _ = press(t, m, runes("r"))
	if rec.on || rec.stops != 1 {
		t.Errorf("recording not stopped: %+v", rec)
	}

	rec.fail = errors.New("disk full")
	m, _ = press(t, m, runes("r"))
	if m.err == nil || rec.on {
		t.Errorf("start failure not reported: %v", m.err)
	}
}

func TestMonitorTick(t *testing.T) {
	v := &fakeVoice{settings: vocoder.Settings{Key: 12, Note: 1, Octave: 2}}
	m := NewMonitor(v, MonitorOptions{})

	v.tel = stream.Telemetry{
		Frame: 7, Mode: "autotune", Detected: 218.4, Target: 220,
		Ratio: 1.0073, Note: "A", Octave: 3, Level: 0.1, Bands: []float64{0, 0.5, 1},
	}
	v.stats.Frames.Store(7)
	v.stats.Overruns.Store(2)

	m, cmd := press(t, m, tickMsg{})
	if cmd == nil {
		t.Error("tick did not schedule the next refresh")
	}
	if m.tel.Frame != 7 || m.stats.Frames != 7 {
		t.Errorf("tick did not refresh: frame %d, stats %+v", m.tel.Frame, m.stats)
	}

	view := m.View()
	for _, want := range []string{"A Minor", "1 (A)", "218.4 Hz (A3) → 220.0 Hz", "1.007", "dropped 2", "▁"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestLevelFraction(t *testing.T) {
	tests := []struct {
		rms, want float64
	}{
		{0, 0},
		{-1, 0},
		{1, 1},
		{2, 1},
		{0.001, 0},
		{0.01, 1.0 / 3},
	}
	for _, tt := range tests {
		if got := levelFraction(tt.rms); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("levelFraction(%v) = %v, want %v", tt.rms, got, tt.want)
		}
	}
}

func TestBandBars(t *testing.T) {
	got := bandBars([]float64{-1, 0, 0.5, 1, 3})
	if !strings.Contains(got, "▁▁▅██") {
		t.Errorf("bandBars = %q", got)
	}
}

func TestDevicePicker(t *testing.T) {
	fetch := func() ([]audio.Device, error) {
		return []audio.Device{
			{ID: 0, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
			{ID: 1, Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
			{ID: 2, Name: "Headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 48000},
		}, nil
	}
	step := func(m DevicePicker, msg tea.Msg) (DevicePicker, tea.Cmd) {
		next, cmd := m.Update(msg)
		return next.(DevicePicker), cmd
	}

	m := newDevicePicker(fetch)
	m, _ = step(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = step(m, m.Init()())
	if len(m.devices) != 2 {
		t.Fatalf("picker lists %d devices, want the 2 duplex ones", len(m.devices))
	}
	if v := m.View(); !strings.Contains(v, "Interface") || strings.Contains(v, "Mic") {
		t.Errorf("list view:\n%s", v)
	}

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = step(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != ConfigScreen || m.sampleRateIndex != 1 {
		t.Fatalf("screen %d, rate index %d", m.activeScreen, m.sampleRateIndex)
	}
	m, _ = step(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("choosing a rate should quit the picker")
	}

	sel := m.Selection()
	if !sel.Chosen || sel.Device.ID != 2 || sel.SampleRate != 88200 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestDevicePickerError(t *testing.T) {
	m := newDevicePicker(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	next, _ := m.Update(m.Init()())
	if v := next.View(); !strings.Contains(v, "no host") {
		t.Errorf("view = %q", v)
	}
	if _, cmd := next.Update(runes("x")); cmd == nil {
		t.Error("any key should exit after an error")
	}
}
