package editor

import "testing"

type destroyCounter struct {
	destroys int
}

func (d *destroyCounter) Value() string         { return "" }
func (d *destroyCounter) SetValue(string, bool) {}
func (d *destroyCounter) OnChange(func(string)) {}
func (d *destroyCounter) Focus()                {}
func (d *destroyCounter) Destroy()              { d.destroys++ }

type richCounter struct {
	destroys int
}

func (r *richCounter) GetHTML() string         { return "" }
func (r *richCounter) SetContent(string, bool) {}
func (r *richCounter) OnChange(func())         {}
func (r *richCounter) Destroy()                { r.destroys++ }

func TestGetOrCreateReturnsSameHandle(t *testing.T) {
	reg := NewRegistry()

	a := reg.GetOrCreate("pane-1")
	b := reg.GetOrCreate("pane-1")
	if a != b {
		t.Fatalf("expected one handle per pane id")
	}
	if a.Text != nil || a.Rich != nil || a.SaveTimer != nil || a.ScrollSync != nil {
		t.Fatalf("new handle fields must start nil: %+v", a)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one live handle, got %d", reg.Len())
	}
}

func TestDestroyTearsDownEngines(t *testing.T) {
	reg := NewRegistry()
	text := &destroyCounter{}
	rich := &richCounter{}

	h := reg.GetOrCreate("pane-1")
	h.Text = text
	h.Rich = rich
	h.ScrollSync = &ScrollSync{}

	reg.Destroy("pane-1")

	if text.destroys != 1 || rich.destroys != 1 {
		t.Fatalf("expected each engine destroyed once, got text=%d rich=%d", text.destroys, rich.destroys)
	}
	if h.Text != nil || h.Rich != nil || h.ScrollSync != nil {
		t.Fatalf("handle fields must be nil after destroy: %+v", h)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected handle removed, got %d", reg.Len())
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	text := &destroyCounter{}
	reg.GetOrCreate("pane-1").Text = text

	reg.Destroy("pane-1")
	reg.Destroy("pane-1")
	reg.Destroy("never-created")

	if text.destroys != 1 {
		t.Fatalf("engine must not be double-freed, destroys=%d", text.destroys)
	}
}

func TestLookupDoesNotCreate(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.Lookup("pane-1"); ok {
		t.Fatalf("lookup must not create handles")
	}
	reg.GetOrCreate("pane-1")
	if _, ok := reg.Lookup("pane-1"); !ok {
		t.Fatalf("expected handle present")
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var reg *Registry
	if h := reg.GetOrCreate("x"); h != nil {
		t.Fatalf("nil registry returned a handle")
	}
	reg.Destroy("x")
	if reg.Len() != 0 {
		t.Fatalf("nil registry has no handles")
	}
}
