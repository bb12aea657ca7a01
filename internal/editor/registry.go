package editor

import (
	"sync"
	"time"
)

// Handle is the non-persistent runtime state for one pane. Fields start nil
// and are populated by the caller once the corresponding engine mounts.
type Handle struct {
	Text       TextEngine
	Rich       RichEngine
	SaveTimer  *time.Timer
	ScrollSync *ScrollSync
}

// Registry is the side table associating pane ids with live engine handles.
// Exactly one handle exists per active pane id.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// GetOrCreate returns the handle for a pane id, creating an empty one on
// first use.
func (r *Registry) GetOrCreate(paneID string) *Handle {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[paneID]; ok {
		return h
	}
	h := &Handle{}
	r.handles[paneID] = h
	return h
}

// Lookup returns the handle for a pane id without creating one.
func (r *Registry) Lookup(paneID string) (*Handle, bool) {
	if r == nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[paneID]
	return h, ok
}

// Destroy tears down every engine owned by the pane's handle and removes it.
// It is idempotent and safe to call for ids that were never created. Fields
// are nilled after teardown so a stale reference cannot double-free an
// engine.
func (r *Registry) Destroy(paneID string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	h, ok := r.handles[paneID]
	if ok {
		delete(r.handles, paneID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if h.SaveTimer != nil {
		h.SaveTimer.Stop()
		h.SaveTimer = nil
	}
	if h.Text != nil {
		h.Text.Destroy()
		h.Text = nil
	}
	if h.Rich != nil {
		h.Rich.Destroy()
		h.Rich = nil
	}
	h.ScrollSync = nil
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
