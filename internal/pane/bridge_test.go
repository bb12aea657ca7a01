package pane

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeText is a TextEngine whose change listener only fires on emitting
// writes, like the real engine.
type fakeText struct {
	value    string
	onChange func(string)
	emits    []bool
	focused  int
}

func (f *fakeText) Value() string { return f.value }

func (f *fakeText) SetValue(text string, emitChange bool) {
	f.value = text
	f.emits = append(f.emits, emitChange)
	if emitChange && f.onChange != nil {
		f.onChange(text)
	}
}

func (f *fakeText) OnChange(fn func(string)) { f.onChange = fn }
func (f *fakeText) Focus()                   { f.focused++ }
func (f *fakeText) Destroy()                 {}

// fakeRich mirrors the rich engine contract: SetContent with emitUpdate
// false must not fire the change listener.
type fakeRich struct {
	html     string
	onChange func()
	emits    []bool
}

func (f *fakeRich) GetHTML() string { return f.html }

func (f *fakeRich) SetContent(html string, emitUpdate bool) {
	f.html = html
	f.emits = append(f.emits, emitUpdate)
	if emitUpdate && f.onChange != nil {
		f.onChange()
	}
}

func (f *fakeRich) OnChange(fn func()) { f.onChange = fn }
func (f *fakeRich) Destroy()           {}

// fakeConverter is a trivially invertible markdown/HTML pair so round trips
// are byte-exact.
type fakeConverter struct {
	failToMarkdown bool
}

func (c *fakeConverter) ToHTML(markdown string) (string, error) {
	return "<p>" + markdown + "</p>", nil
}

func (c *fakeConverter) ToMarkdown(html string) (string, error) {
	if c.failToMarkdown {
		return "", errors.New("unbalanced document model")
	}
	md := strings.TrimPrefix(html, "<p>")
	return strings.TrimSuffix(md, "</p>"), nil
}

func mirroredPane(t *testing.T) (*Manager, *Pane, *fakeRich, *fakeConverter) {
	t.Helper()

	m, _, _ := testManager(t, Config{})
	p, err := m.Open(context.Background(), "fm.md", OpenOptions{})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	rich := &fakeRich{}
	conv := &fakeConverter{}
	m.Bridge().OpenMirror(rich, conv)
	return m, p, rich, conv
}

func TestOpenMirrorLoadsActivePaneBody(t *testing.T) {
	_, _, rich, _ := mirroredPane(t)

	if rich.html != "<p>body</p>" {
		t.Fatalf("mirror not loaded from canonical body: %q", rich.html)
	}
	for _, emitted := range rich.emits {
		if emitted {
			t.Fatalf("mirror load must not fire the rich change listener")
		}
	}
}

func TestTextEditFlowsToCanonicalAndMirror(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)
	b := m.Bridge()

	b.TextEdited(p.ID, "---\ntitle: FM\n---\nrewritten")
	b.FlushTextEdits(p.ID)

	if p.Content != "---\ntitle: FM\n---\nrewritten" || !p.Dirty {
		t.Fatalf("text edit did not reach canonical content: %+v", p)
	}
	if !m.Autosave().Pending(p.ID) {
		t.Fatalf("text edit must schedule an autosave")
	}

	b.FlushMirror(p.ID)
	if rich.html != "<p>rewritten</p>" {
		t.Fatalf("mirror not refreshed after text edit: %q", rich.html)
	}
}

func TestTypingBurstCoalescesToOneEdit(t *testing.T) {
	m, p, _, _ := mirroredPane(t)
	b := m.Bridge()

	b.TextEdited(p.ID, "draft 1")
	b.TextEdited(p.ID, "draft 2")
	b.TextEdited(p.ID, "draft 3")
	b.FlushTextEdits(p.ID)

	if p.Content != "draft 3" {
		t.Fatalf("latest edit must win: %q", p.Content)
	}
	if len(p.undo) != 1 {
		t.Fatalf("burst collapsed into %d undo snapshots, want 1", len(p.undo))
	}
}

func TestRichEditSyncsToCanonical(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)
	b := m.Bridge()

	text := &fakeText{}
	m.Registry().GetOrCreate(p.ID).Text = text
	text.OnChange(func(value string) { b.TextEdited(p.ID, value) })

	rich.html = "<p>edited body</p>"
	rich.onChange()
	b.mirrorDeb.Flush(fromRichKey(p.ID))

	want := "---\ntitle: FM\n---\nedited body"
	if p.Content != want {
		t.Fatalf("canonical content = %q, want %q", p.Content, want)
	}
	if text.value != want {
		t.Fatalf("plain-text buffer = %q, want %q", text.value, want)
	}
	if !m.Autosave().Pending(p.ID) {
		t.Fatalf("rich sync must schedule an autosave")
	}
	// The buffer write must bypass the change listener, or the edit would
	// cycle back through the bridge forever.
	for _, emitted := range text.emits {
		if emitted {
			t.Fatalf("rich sync wrote the buffer with change emission on")
		}
	}
	if b.editDeb.Pending(editKey(p.ID)) {
		t.Fatalf("rich sync looped back into the text-edit path")
	}
}

func TestRichRoundTripIsStable(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)
	b := m.Bridge()

	before := p.Content
	rich.onChange() // no actual change in the document model
	b.mirrorDeb.Flush(fromRichKey(p.ID))

	if p.Content != before {
		t.Fatalf("round trip changed content: %q -> %q", before, p.Content)
	}
	if p.Dirty {
		t.Fatalf("round trip must not dirty the pane")
	}
	if m.Autosave().Pending(p.ID) {
		t.Fatalf("round trip must not schedule a save")
	}
}

func TestPendingTextEditVoidsRichSync(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)
	b := m.Bridge()

	b.TextEdited(p.ID, "typed wins")
	rich.html = "<p>stale rich edit</p>"
	rich.onChange()
	b.mirrorDeb.Flush(fromRichKey(p.ID))

	if strings.Contains(p.Content, "stale rich edit") {
		t.Fatalf("rich sync overrode a pending text edit: %q", p.Content)
	}

	b.FlushTextEdits(p.ID)
	if p.Content != "typed wins" {
		t.Fatalf("pending text edit lost: %q", p.Content)
	}
}

func TestConversionFailureRebuildsMirror(t *testing.T) {
	m, p, rich, conv := mirroredPane(t)
	b := m.Bridge()

	var notices []Notice
	m.SetNotifier(func(n Notice) { notices = append(notices, n) })

	before := p.Content
	conv.failToMarkdown = true
	rich.html = "<p>about to be lost</p>"
	rich.onChange()
	b.mirrorDeb.Flush(fromRichKey(p.ID))

	if p.Content != before || p.Dirty {
		t.Fatalf("conversion failure must leave canonical content intact")
	}
	if rich.html != "<p>body</p>" {
		t.Fatalf("mirror not rebuilt from canonical content: %q", rich.html)
	}
	if len(notices) == 0 || notices[0].Level != NoticeError {
		t.Fatalf("expected an error notice, got %+v", notices)
	}
}

func TestFocusRepointsMirror(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)

	rich.html = "<p>pending edit on first pane</p>"
	rich.onChange()

	second, err := m.Open(context.Background(), "a.md", OpenOptions{})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	// Repointing committed the pending sync for the first pane before the
	// mirror moved on.
	if !strings.Contains(p.Content, "pending edit on first pane") {
		t.Fatalf("pending rich edit lost on refocus: %q", p.Content)
	}
	if rich.html != "<p>alpha content</p>" {
		t.Fatalf("mirror not repointed at %s: %q", second.Path, rich.html)
	}
}

func TestCloseMirrorCommitsPendingSync(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)
	b := m.Bridge()

	rich.html = "<p>last rich edit</p>"
	rich.onChange()
	b.CloseMirror()

	if !strings.Contains(p.Content, "last rich edit") {
		t.Fatalf("pending rich edit lost on mirror close: %q", p.Content)
	}
	if b.MirrorOpen() {
		t.Fatalf("mirror still attached after close")
	}

	// Change events from a detached engine go nowhere.
	before := p.Content
	rich.onChange()
	b.mirrorDeb.Flush(fromRichKey(p.ID))
	if p.Content != before {
		t.Fatalf("detached mirror still syncing: %q", p.Content)
	}
}

func TestClosingPaneDetachesMirror(t *testing.T) {
	m, p, rich, _ := mirroredPane(t)
	b := m.Bridge()

	if err := m.Close(context.Background(), p.ID, CloseOptions{}); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if b.mirrorID != "" {
		t.Fatalf("mirror still pointing at closed pane %q", b.mirrorID)
	}

	// A late change event from the torn-down engine is harmless.
	rich.onChange()
	if b.mirrorDeb.Pending(fromRichKey(p.ID)) {
		t.Fatalf("sync queued for a closed pane")
	}
}
