package desk

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Approve      key.Binding
	Reject       key.Binding
	Pending      key.Binding
	Delete       key.Binding
	ResetAll     key.Binding
	ApprovedOnly key.Binding
	New          key.Binding
	Reload       key.Binding
	CycleTheme   key.Binding
	Quit         key.Binding

	// Form
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Cancel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Approve:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
		Reject:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reject")),
		Pending:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pending")),
		Delete:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		ResetAll:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset all")),
		ApprovedOnly: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "approved only")),
		New:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Reload:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "reload")),
		CycleTheme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}
