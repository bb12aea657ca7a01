package pane

import (
	"github.com/granitemd/granite/internal/debounce"
	"github.com/granitemd/granite/internal/editor"
)

// Converter translates between canonical markdown and the rich document
// model's HTML. Either direction may fail on malformed input.
type Converter interface {
	ToHTML(markdown string) (string, error)
	ToMarkdown(html string) (string, error)
}

// BridgeState names the bridge's synchronization phases.
type BridgeState int

const (
	BridgeIdle BridgeState = iota
	BridgeSyncingToRich
	BridgeSyncingToCanonical
)

// Bridge keeps a pane's canonical content, its plain-text engine buffer, and
// the optional rich-text mirror consistent without update cycles.
//
// Plain text is the source of truth: a rich-mirror sync is discarded when a
// plain-text edit is pending for the same pane. The single re-entrancy guard
// is sound because the mirror reflects at most one pane at a time.
type Bridge struct {
	mgr       *Manager
	editDeb   *debounce.Debouncer
	mirrorDeb *debounce.Debouncer

	conv     Converter
	rich     editor.RichEngine
	mirrorID string
	guard    bool
	state    BridgeState
}

func newBridge(mgr *Manager) *Bridge {
	return &Bridge{
		mgr:       mgr,
		editDeb:   debounce.New(mgr.cfg.EditDelay),
		mirrorDeb: debounce.New(mgr.cfg.MirrorDelay),
	}
}

func editKey(paneID string) string     { return "edit/" + paneID }
func toRichKey(paneID string) string   { return "torich/" + paneID }
func fromRichKey(paneID string) string { return "fromrich/" + paneID }

// State returns the bridge's current phase.
func (b *Bridge) State() BridgeState {
	b.mgr.mu.Lock()
	defer b.mgr.mu.Unlock()
	return b.state
}

// MirrorOpen reports whether a rich mirror is attached.
func (b *Bridge) MirrorOpen() bool {
	b.mgr.mu.Lock()
	defer b.mgr.mu.Unlock()
	return b.rich != nil
}

// OpenMirror attaches a rich engine mirroring the active pane through conv.
func (b *Bridge) OpenMirror(rich editor.RichEngine, conv Converter) {
	if b == nil || rich == nil || conv == nil {
		return
	}

	b.mgr.mu.Lock()
	b.rich = rich
	b.conv = conv
	b.mirrorID = b.mgr.activeID
	b.mgr.mu.Unlock()

	rich.OnChange(b.richEdited)
	b.loadMirror()
}

// CloseMirror commits any pending rich sync and detaches the mirror.
func (b *Bridge) CloseMirror() {
	if b == nil {
		return
	}

	b.mgr.mu.Lock()
	id := b.mirrorID
	rich := b.rich
	b.mgr.mu.Unlock()
	if rich == nil {
		return
	}

	b.mirrorDeb.Flush(fromRichKey(id))

	b.mgr.mu.Lock()
	b.rich = nil
	b.conv = nil
	b.mirrorID = ""
	b.mgr.mu.Unlock()
}

// TextEdited is the plain-text engine's change path: debounce, then update
// canonical content, schedule autosave, and refresh the mirror if it shows
// this pane.
func (b *Bridge) TextEdited(paneID, text string) {
	if b == nil {
		return
	}
	b.editDeb.Trigger(editKey(paneID), func() { b.applyTextEdit(paneID, text) })
}

// FlushTextEdits commits a pending text edit for the pane immediately.
func (b *Bridge) FlushTextEdits(paneID string) {
	if b == nil {
		return
	}
	b.editDeb.Flush(editKey(paneID))
}

// FlushMirror commits a pending mirror refresh for the pane immediately.
func (b *Bridge) FlushMirror(paneID string) {
	if b == nil {
		return
	}
	b.mirrorDeb.Flush(toRichKey(paneID))
}

func (b *Bridge) applyTextEdit(paneID, text string) {
	m := b.mgr

	m.mu.Lock()
	if b.guard {
		m.mu.Unlock()
		return
	}
	p := m.paneByIDLocked(paneID)
	if p == nil {
		m.mu.Unlock()
		return
	}
	p.SetContent(text)
	mirrored := b.rich != nil && b.mirrorID == paneID
	if mirrored {
		b.state = BridgeSyncingToRich
	}
	m.mu.Unlock()

	m.autosave.Schedule(paneID)

	if mirrored {
		// Independent debounce: a typing burst causes one mirror refresh.
		b.mirrorDeb.Trigger(toRichKey(paneID), func() { b.refreshMirror(paneID) })
	}
}

// refreshMirror rebuilds the rich mirror from canonical content without
// marking the pane dirty.
func (b *Bridge) refreshMirror(paneID string) {
	m := b.mgr

	m.mu.Lock()
	p := m.paneByIDLocked(paneID)
	rich := b.rich
	conv := b.conv
	if p == nil || rich == nil || b.mirrorID != paneID {
		b.state = BridgeIdle
		m.mu.Unlock()
		return
	}
	body := p.Body()
	m.mu.Unlock()

	html, err := conv.ToHTML(body)
	if err != nil {
		m.notifyf(NoticeError, "rich view refresh failed for %s: %v", p.Path, err)
		m.mu.Lock()
		b.state = BridgeIdle
		m.mu.Unlock()
		return
	}

	rich.SetContent(html, false)

	m.mu.Lock()
	b.state = BridgeIdle
	m.mu.Unlock()
}

// richEdited is the rich engine's change path: debounce, then convert the
// document model back to markdown and commit it to canonical content.
func (b *Bridge) richEdited() {
	b.mgr.mu.Lock()
	id := b.mirrorID
	b.mgr.mu.Unlock()
	if id == "" {
		return
	}
	b.mirrorDeb.Trigger(fromRichKey(id), func() { b.syncToCanonical(id) })
}

func (b *Bridge) syncToCanonical(paneID string) {
	m := b.mgr

	// Plain text wins: a pending plain-text edit voids this sync.
	if b.editDeb.Pending(editKey(paneID)) {
		return
	}

	m.mu.Lock()
	p := m.paneByIDLocked(paneID)
	rich := b.rich
	conv := b.conv
	if p == nil || rich == nil || b.mirrorID != paneID {
		m.mu.Unlock()
		return
	}
	b.state = BridgeSyncingToCanonical
	front := p.Frontmatter()
	m.mu.Unlock()

	md, err := conv.ToMarkdown(rich.GetHTML())
	if err != nil {
		// Conversion failures never take the pane down: rebuild the mirror
		// from the last-known-good canonical content instead.
		m.notifyf(NoticeError, "rich view edit lost for %s: %v", p.Path, err)
		b.refreshMirror(paneID)
		return
	}

	full := front + md

	m.mu.Lock()
	if full == p.Content {
		b.state = BridgeIdle
		m.mu.Unlock()
		return
	}
	b.guard = true
	p.SetContent(full)
	b.guard = false
	b.state = BridgeIdle
	m.mu.Unlock()

	if handle, ok := m.registry.Lookup(paneID); ok && handle.Text != nil {
		// Bypass the engine's own change listener to avoid a feedback loop.
		handle.Text.SetValue(full, false)
	}

	m.autosave.Schedule(paneID)
}

// paneFocused re-points the mirror at the newly focused pane, committing any
// pending sync from the previously mirrored pane first.
func (b *Bridge) paneFocused(p *Pane) {
	if b == nil || p == nil {
		return
	}

	b.mgr.mu.Lock()
	rich := b.rich
	previous := b.mirrorID
	b.mgr.mu.Unlock()

	if rich == nil || previous == p.ID {
		return
	}

	if previous != "" {
		b.mirrorDeb.Flush(fromRichKey(previous))
		b.mirrorDeb.Cancel(toRichKey(previous))
	}

	b.mgr.mu.Lock()
	b.mirrorID = p.ID
	b.mgr.mu.Unlock()

	b.loadMirror()
}

// loadMirror fills the mirror from the mirrored pane's canonical content.
func (b *Bridge) loadMirror() {
	b.mgr.mu.Lock()
	id := b.mirrorID
	b.mgr.mu.Unlock()
	if id == "" {
		return
	}
	b.refreshMirror(id)
}

// paneClosingLocked drops every pending timer for a closing pane. The
// manager holds its lock; the debouncers use their own.
func (b *Bridge) paneClosingLocked(paneID string) {
	if b == nil {
		return
	}
	b.editDeb.Cancel(editKey(paneID))
	b.mirrorDeb.Cancel(toRichKey(paneID))
	b.mirrorDeb.Cancel(fromRichKey(paneID))
	if b.mirrorID == paneID {
		b.mirrorID = ""
	}
}
