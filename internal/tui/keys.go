package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Up         key.Binding
	Down       key.Binding
	Actions    key.Binding
	Assign     key.Binding
	Refresh    key.Binding
	Reread     key.Binding
	Rewrite    key.Binding
	Close      key.Binding
	Submit     key.Binding
	Accept     key.Binding
	ToggleHelp key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab:    key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next table")),
	PrevTab:    key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("S-tab", "prev table")),
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Actions:    key.NewBinding(key.WithKeys("enter", "a"), key.WithHelp("ent/a", "actions")),
	Assign:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "assign")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Reread:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reread host")),
	Rewrite:    key.NewBinding(key.WithKeys("W"), key.WithHelp("W", "rewrite host")),
	Close:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("ent", "submit")),
	Accept:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "accept suggestion")),
	ToggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Actions, k.Assign, k.Refresh, k.NextTab, k.ToggleHelp, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab, k.PrevTab},
		{k.Actions, k.Assign, k.Refresh},
		{k.Reread, k.Rewrite},
		{k.Close, k.ToggleHelp, k.Quit},
	}
}

type wizardKeyMap struct{}

func (wizardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.Accept, keys.Submit, keys.Close}
}

func (w wizardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{w.ShortHelp()}
}
