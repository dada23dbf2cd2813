package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap implements help.KeyMap.
type keyMap struct {
	Start key.Binding
	Stop  key.Binding
	Pause key.Binding
	Clear key.Binding
	Up    key.Binding
	Down  key.Binding
	Theme key.Binding
	Debug key.Binding
	Help  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start stream")),
	Stop:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop stream")),
	Pause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space/p", "pause")),
	Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Theme: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Debug: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Pause, k.Clear, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Pause, k.Clear},
		{k.Up, k.Down},
		{k.Theme, k.Debug, k.Help, k.Quit},
	}
}
