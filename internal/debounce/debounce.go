package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers per key into a single callback after
// a quiet period. Only the most recently triggered callback for a key runs.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*pendingCall

	after func(time.Duration, func()) stopper
}

type stopper interface {
	Stop() bool
}

type pendingCall struct {
	fn    func()
	timer stopper
}

// New constructs a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pendingCall),
		after: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
	}
}

// Trigger schedules fn to run after the quiet period, replacing any pending
// callback for the same key.
func (d *Debouncer) Trigger(key string, fn func()) {
	if d == nil || fn == nil {
		return
	}

	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	call := &pendingCall{fn: fn}
	call.timer = d.after(d.delay, func() { d.fire(key, call) })
	d.pending[key] = call
	d.mu.Unlock()
}

func (d *Debouncer) fire(key string, call *pendingCall) {
	d.mu.Lock()
	current, ok := d.pending[key]
	if !ok || current != call {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	call.fn()
}

// Cancel drops any pending callback for key without running it.
func (d *Debouncer) Cancel(key string) {
	if d == nil {
		return
	}

	d.mu.Lock()
	if call, ok := d.pending[key]; ok {
		call.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
}

// Flush runs any pending callback for key immediately instead of waiting out
// the quiet period. It is a no-op when nothing is pending.
func (d *Debouncer) Flush(key string) {
	if d == nil {
		return
	}

	d.mu.Lock()
	call, ok := d.pending[key]
	if ok {
		call.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		call.fn()
	}
}

// Pending reports whether a callback is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	if d == nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// CancelAll drops every pending callback.
func (d *Debouncer) CancelAll() {
	if d == nil {
		return
	}

	d.mu.Lock()
	for key, call := range d.pending {
		call.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
}
