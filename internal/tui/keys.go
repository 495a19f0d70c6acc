package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle key.Binding
	Reset  key.Binding
	Faster key.Binding
	Slower key.Binding
	AxisX  key.Binding
	AxisY  key.Binding
	Add    key.Binding
	Remove key.Binding
	Param  key.Binding
	Theme  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "run/pause")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Faster: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
		AxisX:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "next x axis")),
		AxisY:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "next y axis")),
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add trajectory")),
		Remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "drop last")),
		Param:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "set param")),
		Theme:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Param, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Reset, k.Faster, k.Slower},
		{k.AxisX, k.AxisY, k.Add, k.Remove},
		{k.Param, k.Theme, k.Help, k.Quit},
	}
}
