package pane

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/granitemd/granite/internal/editor"
	"github.com/granitemd/granite/internal/session"
	"github.com/granitemd/granite/internal/store"
)

// ErrCapacity reports that the open-pane limit was reached and no clean pane
// could be evicted. It is a user-visible refusal, not a crash path.
var ErrCapacity = errors.New("maximum panes reached")

// ErrAborted reports that the user declined a close confirmation.
var ErrAborted = errors.New("close aborted")

// NoticeLevel grades user-visible notifications.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)

// Notice is a user-visible condition surfaced by the manager. Notices are
// never fatal to the manager's internal state.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Config tunes the pane manager.
type Config struct {
	MaxOpen       int
	AutosaveDelay time.Duration
	EditDelay     time.Duration
	MirrorDelay   time.Duration
	DefaultWidth  int
}

func (c Config) withDefaults() Config {
	if c.MaxOpen <= 0 {
		c.MaxOpen = 8
	}
	if c.AutosaveDelay <= 0 {
		c.AutosaveDelay = 2 * time.Second
	}
	if c.EditDelay <= 0 {
		c.EditDelay = 300 * time.Millisecond
	}
	if c.MirrorDelay <= 0 {
		c.MirrorDelay = 300 * time.Millisecond
	}
	if c.DefaultWidth <= 0 {
		c.DefaultWidth = 720
	}
	return c
}

// OpenOptions controls Manager.Open.
type OpenOptions struct {
	FocusExisting bool
	Mode          ViewMode
	Type          DocType
}

// CloseOptions controls Manager.Close.
type CloseOptions struct {
	Save   bool
	Prompt bool
}

// Manager owns the ordered pane collection. All structural mutation of the
// collection happens here; other components only mutate fields of panes they
// were handed.
type Manager struct {
	mu       sync.Mutex
	store    store.Store
	registry *editor.Registry
	kv       session.KV
	cfg      Config
	now      func() time.Time
	sleep    func(time.Duration)

	panes    []*Pane
	activeID string
	nextID   int

	notify  func(Notice)
	confirm func(*Pane) bool
	mounter func(*Pane) error

	autosave *Scheduler
	bridge   *Bridge

	openedFns  []func(*Pane)
	closedFns  []func(*Pane)
	focusedFns []func(*Pane)
}

// NewManager wires a Manager against the document store, the engine-handle
// registry, and the persisted session store.
func NewManager(st store.Store, reg *editor.Registry, kv session.KV, cfg Config) *Manager {
	m := &Manager{
		store:    st,
		registry: reg,
		kv:       kv,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		sleep:    time.Sleep,
	}
	m.autosave = newScheduler(m, m.cfg.AutosaveDelay)
	m.bridge = newBridge(m)
	return m
}

// SetNotifier registers the sink for user-visible conditions.
func (m *Manager) SetNotifier(fn func(Notice)) {
	m.notify = fn
}

// SetConfirmer registers the collaborator asked before closing a dirty pane
// with prompting requested. With no confirmer registered, prompted closes of
// dirty panes are declined.
func (m *Manager) SetConfirmer(fn func(*Pane) bool) {
	m.confirm = fn
}

// SetMounter registers the collaborator that mounts a pane's editing engine
// once its container exists. Mounting retries with backoff since the
// container may not be rendered yet.
func (m *Manager) SetMounter(fn func(*Pane) error) {
	m.mounter = fn
}

// OnOpened registers an observer for pane creation.
func (m *Manager) OnOpened(fn func(*Pane)) { m.openedFns = append(m.openedFns, fn) }

// OnClosed registers an observer for pane teardown.
func (m *Manager) OnClosed(fn func(*Pane)) { m.closedFns = append(m.closedFns, fn) }

// OnFocused registers an observer for active-pane changes.
func (m *Manager) OnFocused(fn func(*Pane)) { m.focusedFns = append(m.focusedFns, fn) }

// Bridge returns the content synchronization bridge.
func (m *Manager) Bridge() *Bridge { return m.bridge }

// Autosave returns the autosave scheduler.
func (m *Manager) Autosave() *Scheduler { return m.autosave }

// Registry returns the engine-handle registry.
func (m *Manager) Registry() *editor.Registry { return m.registry }

func (m *Manager) notifyf(level NoticeLevel, format string, args ...any) {
	if m.notify == nil {
		return
	}
	m.notify(Notice{Level: level, Message: fmt.Sprintf(format, args...)})
}

func emit(fns []func(*Pane), p *Pane) {
	for _, fn := range fns {
		fn(p)
	}
}

// Panes returns the open panes in display order.
func (m *Manager) Panes() []*Pane {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Pane, len(m.panes))
	copy(out, m.panes)
	return out
}

// Active returns the active pane, or nil.
func (m *Manager) Active() *Pane {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paneByIDLocked(m.activeID)
}

// Get returns the pane with the given id, or nil. Unknown ids are routine,
// not errors: async callbacks race with user-driven closes.
func (m *Manager) Get(id string) *Pane {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paneByIDLocked(id)
}

func (m *Manager) paneByIDLocked(id string) *Pane {
	for _, p := range m.panes {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Manager) paneByPathLocked(path string) *Pane {
	for _, p := range m.panes {
		if p.Path == path {
			return p
		}
	}
	return nil
}

// Open opens the document at path in a new pane, or refocuses the existing
// pane for that path. At capacity, the oldest clean pane is evicted; with no
// clean pane to evict the open is refused with ErrCapacity.
func (m *Manager) Open(ctx context.Context, path string, opts OpenOptions) (*Pane, error) {
	m.mu.Lock()
	if existing := m.paneByPathLocked(path); existing != nil {
		m.mu.Unlock()
		if opts.FocusExisting {
			m.Focus(existing.ID)
		}
		return existing, nil
	}

	if err := m.ensureRoomLocked(ctx); err != nil {
		m.mu.Unlock()
		m.notifyf(NoticeWarn, "maximum panes reached, close a pane first")
		return nil, err
	}
	m.mu.Unlock()

	doc, err := m.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.notifyf(NoticeWarn, "note not found: %s", path)
		} else {
			m.notifyf(NoticeError, "failed to open %s: %v", path, err)
		}
		return nil, err
	}

	m.mu.Lock()
	// The fetch suspended us; the pane may have appeared meanwhile.
	if existing := m.paneByPathLocked(path); existing != nil {
		m.mu.Unlock()
		if opts.FocusExisting {
			m.Focus(existing.ID)
		}
		return existing, nil
	}
	if err := m.ensureRoomLocked(ctx); err != nil {
		m.mu.Unlock()
		m.notifyf(NoticeWarn, "maximum panes reached, close a pane first")
		return nil, err
	}

	m.nextID++
	p := &Pane{
		ID:          fmt.Sprintf("pane-%d", m.nextID),
		Path:        path,
		DisplayName: displayName(path),
		Mode:        opts.Mode,
		Type:        opts.Type,
		Width:       m.cfg.DefaultWidth,
	}
	if p.Mode == "" {
		p.Mode = ModeEdit
	}
	if p.Type == "" {
		p.Type = DocMarkdown
	}
	p.markFetched(doc.Content)

	insertAt := len(m.panes)
	if active := m.paneByIDLocked(m.activeID); active != nil {
		for i, open := range m.panes {
			if open.ID == active.ID {
				insertAt = i + 1
				break
			}
		}
	}
	m.panes = append(m.panes, nil)
	copy(m.panes[insertAt+1:], m.panes[insertAt:])
	m.panes[insertAt] = p

	m.activeID = p.ID
	m.registry.GetOrCreate(p.ID)
	m.persistLocked()
	m.mu.Unlock()

	emit(m.openedFns, p)
	emit(m.focusedFns, p)
	m.bridge.paneFocused(p)
	m.scheduleMount(p)

	return p, nil
}

// ensureRoomLocked evicts the oldest clean pane when the collection is at
// capacity. Insertion order decides "oldest".
func (m *Manager) ensureRoomLocked(ctx context.Context) error {
	if len(m.panes) < m.cfg.MaxOpen {
		return nil
	}

	for _, candidate := range m.panes {
		if !candidate.Dirty {
			m.mu.Unlock()
			err := m.Close(ctx, candidate.ID, CloseOptions{})
			m.mu.Lock()
			if err != nil {
				return err
			}
			if len(m.panes) < m.cfg.MaxOpen {
				return nil
			}
			return ErrCapacity
		}
	}
	return ErrCapacity
}

// Focus makes the pane active. Focusing the already-active pane is a no-op.
func (m *Manager) Focus(id string) {
	m.mu.Lock()
	if m.activeID == id {
		m.mu.Unlock()
		return
	}
	p := m.paneByIDLocked(id)
	if p == nil {
		m.mu.Unlock()
		return
	}

	m.activeID = id
	m.persistLocked()
	m.mu.Unlock()

	if handle, ok := m.registry.Lookup(id); ok && handle.Text != nil {
		handle.Text.Focus()
	}

	emit(m.focusedFns, p)
	m.bridge.paneFocused(p)
}

// Close tears down the pane. Dirty panes can require confirmation, and can
// be saved synchronously before teardown. Closing an unknown id is a no-op.
func (m *Manager) Close(ctx context.Context, id string, opts CloseOptions) error {
	m.mu.Lock()
	p := m.paneByIDLocked(id)
	if p == nil {
		m.mu.Unlock()
		return nil
	}

	if p.Dirty && opts.Prompt {
		confirm := m.confirm
		m.mu.Unlock()
		if confirm == nil || !confirm(p) {
			return ErrAborted
		}
		m.mu.Lock()
		if m.paneByIDLocked(id) == nil {
			m.mu.Unlock()
			return nil
		}
	}

	// At most one save may happen during teardown: drop the pending timers
	// before the optional synchronous save.
	m.autosave.cancelLocked(id)
	m.bridge.paneClosingLocked(id)

	saveNeeded := p.Dirty && opts.Save
	content := p.Content
	m.mu.Unlock()

	if saveNeeded {
		if err := m.store.Save(ctx, p.Path, content); err != nil {
			m.notifyf(NoticeError, "failed to save %s: %v", p.Path, err)
		} else {
			m.mu.Lock()
			p.markSaved(content, m.now())
			m.mu.Unlock()
		}
	}

	m.registry.Destroy(id)

	m.mu.Lock()
	idx := -1
	for i, open := range m.panes {
		if open.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	m.panes = append(m.panes[:idx], m.panes[idx+1:]...)

	var newActive *Pane
	if m.activeID == id {
		m.activeID = ""
		if len(m.panes) > 0 {
			if idx >= len(m.panes) {
				idx = len(m.panes) - 1
			}
			newActive = m.panes[idx]
			m.activeID = newActive.ID
		}
	}
	m.persistLocked()
	m.mu.Unlock()

	emit(m.closedFns, p)
	if newActive != nil {
		emit(m.focusedFns, newActive)
		m.bridge.paneFocused(newActive)
	}
	return nil
}

// CloseAllExcept closes every pane but keepID, saving dirty panes without
// prompting. Bulk operations never prompt per pane.
func (m *Manager) CloseAllExcept(ctx context.Context, keepID string) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.panes))
	for _, p := range m.panes {
		if p.ID != keepID {
			ids = append(ids, p.ID)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.Close(ctx, id, CloseOptions{Save: true}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PersistSession projects the open panes into the session snapshot.
func (m *Manager) PersistSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked()
}

func (m *Manager) persistLocked() error {
	if m.kv == nil {
		return nil
	}

	snap := session.Snapshot{}
	for _, p := range m.panes {
		snap.Entries = append(snap.Entries, session.Entry{
			Path:     p.Path,
			ViewMode: string(p.Mode),
			Width:    p.Width,
			DocType:  string(p.Type),
		})
	}
	// Runtime ids are not stable across reloads; the snapshot identifies
	// the active pane by its logical key.
	if active := m.paneByIDLocked(m.activeID); active != nil {
		snap.ActiveID = active.Path
	}

	raw, err := snap.Encode()
	if err != nil {
		return err
	}
	return m.kv.Set(session.SnapshotKey, raw)
}

// RestoreSession reopens the persisted snapshot. Entries whose documents no
// longer exist are skipped; the restore never aborts as a whole.
func (m *Manager) RestoreSession(ctx context.Context) error {
	if m.kv == nil {
		return nil
	}

	raw, ok := m.kv.Get(session.SnapshotKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	snap, err := session.Decode(raw)
	if err != nil {
		return err
	}

	for _, entry := range snap.Entries {
		p, err := m.Open(ctx, entry.Path, OpenOptions{
			Mode: ViewMode(entry.ViewMode),
			Type: DocType(entry.DocType),
		})
		if err != nil {
			continue
		}
		if entry.Width > 0 {
			p.Width = entry.Width
		}
	}

	if snap.ActiveID != "" {
		m.mu.Lock()
		target := m.paneByPathLocked(snap.ActiveID)
		m.mu.Unlock()
		if target != nil {
			m.Focus(target.ID)
		}
	}
	return nil
}

const mountRetryBudget = 10

// scheduleMount asks the host to mount the pane's editing engine, retrying
// with backoff while the container is not rendered yet. The retry budget is
// bounded; mounting never spins forever.
func (m *Manager) scheduleMount(p *Pane) {
	mount := m.mounter
	if mount == nil {
		return
	}

	go func() {
		delay := 25 * time.Millisecond
		for attempt := 0; attempt < mountRetryBudget; attempt++ {
			if m.Get(p.ID) == nil {
				return
			}
			if err := mount(p); err == nil {
				return
			}
			m.sleep(delay)
			if delay < 400*time.Millisecond {
				delay *= 2
			}
		}
		m.notifyf(NoticeError, "editor mount failed for %s", p.Path)
	}()
}
