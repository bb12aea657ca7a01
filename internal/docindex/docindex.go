package docindex

import (
	"path"
	"sort"
	"strings"
	"sync"
)

// DocType classifies an indexed document.
type DocType string

const (
	TypeNote  DocType = "note"
	TypeImage DocType = "image"
)

// Entry is one indexed document as reported by the backend listing.
type Entry struct {
	Path string
	Name string
	Type DocType
}

// Index is the queryable collection of known documents used for wikilink and
// image-embed resolution. It is refreshed wholesale by a collaborator
// whenever the backend listing changes.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
	byPath  map[string]int
}

func New() *Index {
	return &Index{byPath: make(map[string]int)}
}

// Replace swaps the full entry set.
func (ix *Index) Replace(entries []Entry) {
	if ix == nil {
		return
	}

	copied := make([]Entry, len(entries))
	copy(copied, entries)
	byPath := make(map[string]int, len(copied))
	for i, e := range copied {
		byPath[normalize(e.Path)] = i
	}

	ix.mu.Lock()
	ix.entries = copied
	ix.byPath = byPath
	ix.mu.Unlock()
}

// Lookup returns the entry stored under path.
func (ix *Index) Lookup(p string) (Entry, bool) {
	if ix == nil {
		return Entry{}, false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	i, ok := ix.byPath[normalize(p)]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// Exists reports whether a wikilink target resolves to a known document,
// matching by path or by name, case-insensitively.
func (ix *Index) Exists(target string) bool {
	if ix == nil {
		return false
	}

	cleaned := normalize(target)
	if cleaned == "" {
		return false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if _, ok := ix.byPath[cleaned]; ok {
		return true
	}
	if _, ok := ix.byPath[cleaned+".md"]; ok {
		return true
	}
	for _, e := range ix.entries {
		if strings.EqualFold(e.Name, cleaned) ||
			strings.EqualFold(strings.TrimSuffix(e.Name, path.Ext(e.Name)), cleaned) {
			return true
		}
	}
	return false
}

// ResolveImage resolves an image-embed target against the indexed images:
// exact name first, then exact path, then case-insensitive suffix match. The
// boolean reports whether the index matched; callers fall back to a direct
// path guess when it did not.
func (ix *Index) ResolveImage(target string) (string, bool) {
	if ix == nil {
		return "", false
	}

	cleaned := normalize(target)
	if cleaned == "" {
		return "", false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, e := range ix.entries {
		if e.Type == TypeImage && e.Name == cleaned {
			return e.Path, true
		}
	}
	if i, ok := ix.byPath[cleaned]; ok && ix.entries[i].Type == TypeImage {
		return ix.entries[i].Path, true
	}
	lowered := strings.ToLower(cleaned)
	for _, e := range ix.entries {
		if e.Type == TypeImage && strings.HasSuffix(strings.ToLower(e.Path), lowered) {
			return e.Path, true
		}
	}
	return "", false
}

// Notes returns the note entries sorted by path, for pickers.
func (ix *Index) Notes() []Entry {
	if ix == nil {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		if e.Type == TypeNote {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Search returns note entries whose path or name contains term,
// case-insensitively, sorted by path.
func (ix *Index) Search(term string) []Entry {
	lowered := strings.ToLower(strings.TrimSpace(term))
	notes := ix.Notes()
	if lowered == "" {
		return notes
	}

	out := notes[:0]
	for _, e := range notes {
		if strings.Contains(strings.ToLower(e.Path), lowered) ||
			strings.Contains(strings.ToLower(e.Name), lowered) {
			out = append(out, e)
		}
	}
	return out
}

func normalize(p string) string {
	cleaned := path.Clean(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
	if cleaned == "." || cleaned == "/" {
		return ""
	}
	return strings.TrimPrefix(cleaned, "/")
}
