package tui

import "github.com/charmbracelet/bubbles/key"

// monitorKeys are the monitor's bindings. They satisfy help.KeyMap.
type monitorKeys struct {
	KeyDown    key.Binding
	KeyUp      key.Binding
	OctaveUp   key.Binding
	OctaveDown key.Binding
	Note       key.Binding
	Formant    key.Binding
	Bypass     key.Binding
	Record     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newMonitorKeys() monitorKeys {
	return monitorKeys{
		KeyDown: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev key"),
		),
		KeyUp: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next key"),
		),
		OctaveUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "octave up"),
		),
		OctaveDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "octave down"),
		),
		Note: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "note (0 = auto)"),
		),
		Formant: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "formant"),
		),
		Bypass: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bypass"),
		),
		Record: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "record"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k monitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.KeyUp, k.OctaveUp, k.Note, k.Bypass, k.Help, k.Quit}
}

func (k monitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.KeyDown, k.KeyUp, k.OctaveUp, k.OctaveDown},
		{k.Note, k.Formant, k.Bypass, k.Record},
		{k.Help, k.Quit},
	}
}

// pickerKeys drive the device picker.
var pickerKeys = struct {
	Up, Down, Select, Back, Quit key.Binding
}{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}
