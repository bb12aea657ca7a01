// Package viewstate carries the display context that layout decisions are
// made against. One Viewport is constructed at startup and passed down
// explicitly; nothing in the program consults global display state.
package viewstate

import "sync"

// Breakpoint is the width at or below which the layout collapses to a
// single-pane presentation.
const Breakpoint = 768

// Viewport is the current display surface. Resizes mutate the one shared
// instance; readers always see the latest dimensions.
type Viewport struct {
	mu     sync.RWMutex
	width  int
	height int

	resizeFns []func(width, height int)
}

// New creates a Viewport with initial dimensions.
func New(width, height int) *Viewport {
	return &Viewport{width: width, height: height}
}

// Size returns the current dimensions.
func (v *Viewport) Size() (width, height int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

// Width returns the current width.
func (v *Viewport) Width() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width
}

// Mobile reports whether the surface is narrow enough for the collapsed
// layout.
func (v *Viewport) Mobile() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width > 0 && v.width <= Breakpoint
}

// Resize records new dimensions and notifies observers. Observers run on
// the caller's goroutine.
func (v *Viewport) Resize(width, height int) {
	v.mu.Lock()
	changed := width != v.width || height != v.height
	v.width = width
	v.height = height
	fns := v.resizeFns
	v.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range fns {
		fn(width, height)
	}
}

// OnResize registers an observer for dimension changes.
func (v *Viewport) OnResize(fn func(width, height int)) {
	v.mu.Lock()
	v.resizeFns = append(v.resizeFns, fn)
	v.mu.Unlock()
}
