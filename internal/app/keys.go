package app

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the card's keyboard bindings.
type keyMap struct {
	Quit        key.Binding
	Refresh     key.Binding
	Help        key.Binding
	History     key.Binding
	Diagnostics key.Binding
	Up          key.Binding
	Down        key.Binding
}

// defaultKeyMap returns the default key bindings.
func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Poll now"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		History: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "Toggle recent plays"),
		),
		Diagnostics: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Toggle diagnostics"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "Scroll history up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "Scroll history down"),
		),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Refresh, k.History, k.Up, k.Down, k.Diagnostics, k.Help, k.Quit}
}
