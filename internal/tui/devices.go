package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vocalfx/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// ScreenType defines which picker screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// sampleRates offered on the config screen.
var sampleRates = []float64{44100, 48000, 88200, 96000}

// Selection is the outcome of the device picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
	Chosen     bool // false when the user quit without choosing
}

// DevicePicker lets the user choose a full-duplex device and a sample rate
// before the engine starts.
type DevicePicker struct {
	fetch         func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRateIndex int
	selection       Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDevicePicker creates a picker over the host's duplex devices.
func NewDevicePicker() DevicePicker {
	return newDevicePicker(audio.HostDevices)
}

func newDevicePicker(fetch func() ([]audio.Device, error)) DevicePicker {
	return DevicePicker{fetch: fetch, activeScreen: ListScreen}
}

// Init fetches the device list.
func (m DevicePicker) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		duplex := devices[:0:0]
		for _, d := range devices {
			if d.Duplex() {
				duplex = append(duplex, d)
			}
		}
		return devicesMsg{duplex}
	}
}

func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, pickerKeys.Quit) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, pickerKeys.Up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, pickerKeys.Down):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, pickerKeys.Select):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
					m.sampleRateIndex = 0
					for i, rate := range sampleRates {
						if rate == m.devices[m.selectedIndex].DefaultSampleRate {
							m.sampleRateIndex = i
							break
						}
					}
				}
			}
		case ConfigScreen:
			switch {
			case key.Matches(msg, pickerKeys.Back):
				m.activeScreen = ListScreen
			case key.Matches(msg, pickerKeys.Up):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
				}
			case key.Matches(msg, pickerKeys.Down):
				if m.sampleRateIndex < len(sampleRates)-1 {
					m.sampleRateIndex++
				}
			case key.Matches(msg, pickerKeys.Select):
				m.selection = Selection{
					Device:     m.devices[m.selectedIndex],
					SampleRate: sampleRates[m.sampleRateIndex],
					Chosen:     true,
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DevicePicker) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
		return
	}
	m.viewport.SetContent(m.renderDevices())
}

// Selection returns what the user chose.
func (m DevicePicker) Selection() Selection { return m.selection }

// View renders the UI
func (m DevicePicker) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Select Audio Device")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Change Value • Enter: Start • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePicker) renderDevices() string {
	if len(m.devices) == 0 {
		return "No full-duplex audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.HostAPI)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz, latency %.1fms\n",
			device.DefaultSampleRate, float64(device.LowLatency.Microseconds())/1000)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}
		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePicker) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	sb.WriteString("Sample Rate:\n")
	for i, rate := range sampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the picker full screen and returns the choice.
func PickDevice() (Selection, error) {
	p := tea.NewProgram(NewDevicePicker(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}
	return final.(DevicePicker).Selection(), nil
}
