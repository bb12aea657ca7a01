package pane

import (
	"path"
	"strings"
	"time"

	"github.com/granitemd/granite/internal/frontmatter"
)

// ViewMode selects the editing surface a pane displays. The rich view is an
// overlay owned by the synchronization bridge, not a pane mode.
type ViewMode string

const (
	ModeEdit  ViewMode = "edit"
	ModeSplit ViewMode = "split"
)

// DocType classifies what a pane holds.
type DocType string

const (
	DocMarkdown DocType = "markdown"
	DocImage    DocType = "image"
)

const undoDepth = 50

// Pane is one open document surface. It is fully serializable: engine
// handles live in the editor registry, keyed by ID, never here.
type Pane struct {
	ID          string
	Path        string
	DisplayName string
	Content     string
	Mode        ViewMode
	Type        DocType
	Dirty       bool
	LastSavedAt time.Time
	Width       int

	EditorScroll  int
	PreviewScroll int
	MetadataOpen  bool

	savedContent string
	undo         []string
	redo         []string
}

func displayName(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// SetContent replaces the canonical content, recording the previous content
// on the undo stack and recomputing the dirty flag.
func (p *Pane) SetContent(content string) {
	if p == nil || content == p.Content {
		return
	}

	p.undo = append(p.undo, p.Content)
	if len(p.undo) > undoDepth {
		p.undo = p.undo[len(p.undo)-undoDepth:]
	}
	p.redo = nil

	p.Content = content
	p.Dirty = p.Content != p.savedContent
}

// Undo restores the previous content snapshot.
func (p *Pane) Undo() bool {
	if p == nil || len(p.undo) == 0 {
		return false
	}

	last := p.undo[len(p.undo)-1]
	p.undo = p.undo[:len(p.undo)-1]
	p.redo = append(p.redo, p.Content)
	p.Content = last
	p.Dirty = p.Content != p.savedContent
	return true
}

// Redo reapplies the most recently undone snapshot.
func (p *Pane) Redo() bool {
	if p == nil || len(p.redo) == 0 {
		return false
	}

	next := p.redo[len(p.redo)-1]
	p.redo = p.redo[:len(p.redo)-1]
	p.undo = append(p.undo, p.Content)
	p.Content = next
	p.Dirty = p.Content != p.savedContent
	return true
}

// markFetched records freshly fetched content as the clean baseline.
func (p *Pane) markFetched(content string) {
	p.Content = content
	p.savedContent = content
	p.Dirty = false
	p.undo = nil
	p.redo = nil
}

// markSaved records a successful save of the given content. The pane stays
// dirty when the canonical content moved on while the save was in flight.
func (p *Pane) markSaved(content string, at time.Time) {
	if p == nil {
		return
	}
	p.savedContent = content
	p.LastSavedAt = at
	p.Dirty = p.Content != p.savedContent
}

// Frontmatter returns the pane's preserved frontmatter block.
func (p *Pane) Frontmatter() string {
	if p == nil {
		return ""
	}
	front, _ := frontmatter.Split(p.Content)
	return front
}

// Body returns the pane content without its frontmatter block.
func (p *Pane) Body() string {
	if p == nil {
		return ""
	}
	_, body := frontmatter.Split(p.Content)
	return body
}
