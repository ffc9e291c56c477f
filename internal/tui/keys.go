package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the editor key bindings. All of them apply while a title
// field has focus; Add, Save, Login, Logout and Quit also work with no row
// focused.
type keyMap struct {
	Add            key.Binding
	Backspace      key.Binding
	Up             key.Binding
	Down           key.Binding
	Toggle         key.Binding
	Delete         key.Binding
	ClearCompleted key.Binding
	Save           key.Binding
	Login          key.Binding
	Logout         key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Add: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "new task"),
		),
		Backspace: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("⌫", "delete empty task"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "toggle done"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "delete"),
		),
		ClearCompleted: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "clear completed"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Login: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "sign in"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "sign out"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// withSession enables or disables the sign-in bindings.
func (k keyMap) withSession(enabled bool) keyMap {
	k.Login.SetEnabled(enabled)
	k.Logout.SetEnabled(enabled)
	return k
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Add, k.Backspace, k.Up, k.Down},
		{k.Toggle, k.Delete, k.ClearCompleted},
		{k.Save, k.Login, k.Logout},
		{k.Help, k.Quit},
	}
}
