package workspace

import (
	"github.com/charmbracelet/bubbles/textarea"
)

// areaEngine adapts a bubbles textarea to the editor.TextEngine contract.
// The change listener fires only from emit or emitting SetValue calls, so
// programmatic writes from the synchronization bridge cannot loop back.
type areaEngine struct {
	area     *textarea.Model
	onChange func(string)
	lastSeen string
}

func newAreaEngine(width, height int) *areaEngine {
	area := textarea.New()
	area.Placeholder = "..."
	area.CharLimit = 0
	area.SetWidth(width)
	area.SetHeight(height)
	return &areaEngine{area: &area}
}

func (e *areaEngine) Value() string {
	if e == nil || e.area == nil {
		return ""
	}
	return e.area.Value()
}

func (e *areaEngine) SetValue(text string, emitChange bool) {
	if e == nil || e.area == nil {
		return
	}
	e.area.SetValue(text)
	e.lastSeen = text
	if emitChange && e.onChange != nil {
		e.onChange(text)
	}
}

func (e *areaEngine) OnChange(fn func(text string)) {
	if e == nil {
		return
	}
	e.onChange = fn
}

func (e *areaEngine) Focus() {
	if e == nil || e.area == nil {
		return
	}
	e.area.Focus()
}

func (e *areaEngine) Destroy() {
	if e == nil || e.area == nil {
		return
	}
	e.area.Reset()
	e.onChange = nil
	e.area = nil
}

// emit delivers the buffer to the change listener if it moved since the
// last delivery. The model calls this after routing key events into the
// textarea.
func (e *areaEngine) emit() {
	if e == nil || e.area == nil || e.onChange == nil {
		return
	}
	value := e.area.Value()
	if value == e.lastSeen {
		return
	}
	e.lastSeen = value
	e.onChange(value)
}

func (e *areaEngine) setSize(width, height int) {
	if e == nil || e.area == nil {
		return
	}
	e.area.SetWidth(width)
	e.area.SetHeight(height)
}
