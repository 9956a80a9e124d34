package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Override key.Binding
	Dismiss  key.Binding
	Cancel   key.Binding
	Help     key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Override, k.Dismiss, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Override, k.Dismiss},
		{k.Cancel, k.Help},
	}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Override: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "request override"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("enter", "q", "ctrl+c"),
			key.WithHelp("enter/q", "dismiss"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}
