package workspace

import "github.com/charmbracelet/bubbles/key"

type workspaceKeyMap struct {
	nextPane   key.Binding
	prevPane   key.Binding
	closePane  key.Binding
	closeOther key.Binding
	toggleMode key.Binding
	save       key.Binding
	undo       key.Binding
	redo       key.Binding
	copyPath   key.Binding
	quit       key.Binding
}

func newWorkspaceKeyMap() *workspaceKeyMap {
	return &workspaceKeyMap{
		nextPane: key.NewBinding(
			key.WithKeys("ctrl+right", "ctrl+n"),
			key.WithHelp("ctrl+→", "next pane"),
		),
		prevPane: key.NewBinding(
			key.WithKeys("ctrl+left", "ctrl+b"),
			key.WithHelp("ctrl+←", "previous pane"),
		),
		closePane: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close pane"),
		),
		closeOther: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "close others"),
		),
		toggleMode: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "toggle preview"),
		),
		save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo"),
		),
		redo: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "redo"),
		),
		copyPath: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "copy path"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
