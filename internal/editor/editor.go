// Package editor holds the per-pane runtime editing state: the opaque
// engine collaborators and the side-table registry that owns their handles.
//
// Engine handles carry internal circular object graphs that must never end
// up inside the serializable pane records or the session snapshot, so they
// live here, indexed by pane id, and panes store only the id.
package editor

// TextEngine is the plain-text editing surface collaborator.
type TextEngine interface {
	// Value returns the engine's full current text.
	Value() string
	// SetValue replaces the buffer. When emitChange is false the engine's
	// own change listener must not fire, so programmatic writes cannot loop
	// back into the synchronization bridge.
	SetValue(text string, emitChange bool)
	// OnChange registers the callback delivering the full text after edits.
	OnChange(fn func(text string))
	Focus()
	Destroy()
}

// RichEngine is the rich-text (WYSIWYG) mirror collaborator.
type RichEngine interface {
	GetHTML() string
	SetContent(html string, emitUpdate bool)
	OnChange(fn func())
	Destroy()
}

// ScrollSync pairs the editor and preview scroll handlers registered while a
// pane is in split mode.
type ScrollSync struct {
	Editor  func(offset int)
	Preview func(offset int)
}
