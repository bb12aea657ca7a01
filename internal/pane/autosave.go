package pane

import (
	"context"
	"time"

	"github.com/granitemd/granite/internal/debounce"
)

// Scheduler debounces per-pane persistence to the document store. One timer
// exists per pane; rescheduling replaces it.
type Scheduler struct {
	mgr *Manager
	deb *debounce.Debouncer
}

func newScheduler(mgr *Manager, delay time.Duration) *Scheduler {
	return &Scheduler{mgr: mgr, deb: debounce.New(delay)}
}

// Schedule queues a debounced save for the pane. Scheduling an unknown or
// since-closed pane id is a no-op.
func (s *Scheduler) Schedule(paneID string) {
	if s == nil {
		return
	}
	s.deb.Trigger(paneID, func() { s.perform(paneID) })
}

// Flush runs a pending save for the pane immediately.
func (s *Scheduler) Flush(paneID string) {
	if s == nil {
		return
	}
	s.deb.Flush(paneID)
}

// Pending reports whether a save is queued for the pane.
func (s *Scheduler) Pending(paneID string) bool {
	if s == nil {
		return false
	}
	return s.deb.Pending(paneID)
}

// cancelLocked drops a pending save. The manager calls this during teardown
// with its lock held; the debouncer has its own lock so the order is safe.
func (s *Scheduler) cancelLocked(paneID string) {
	if s == nil {
		return
	}
	s.deb.Cancel(paneID)
}

// perform is the timer body: save if the pane is still open and still dirty.
func (s *Scheduler) perform(paneID string) {
	m := s.mgr

	m.mu.Lock()
	p := m.paneByIDLocked(paneID)
	if p == nil || !p.Dirty || p.Type == DocImage {
		m.mu.Unlock()
		return
	}

	content := p.Content
	path := p.Path
	m.mu.Unlock()

	if err := m.store.Save(context.Background(), path, content); err != nil {
		// Dirty stays set; the next edit or timer retries.
		m.notifyf(NoticeError, "autosave failed for %s: %v", path, err)
		return
	}

	m.mu.Lock()
	if p := m.paneByIDLocked(paneID); p != nil {
		p.markSaved(content, m.now())
	}
	m.mu.Unlock()
}
