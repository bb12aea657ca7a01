package store

import (
	"context"
	"sync"
	"testing"
)

// countingStore wraps MemStore and counts Gets reaching the backend.
type countingStore struct {
	*MemStore
	mu   sync.Mutex
	gets int
}

func (c *countingStore) Get(ctx context.Context, path string) (Document, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.MemStore.Get(ctx, path)
}

func (c *countingStore) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func TestCachedStoreServesRepeatGetsFromCache(t *testing.T) {
	backend := &countingStore{MemStore: NewMemStore()}
	backend.Seed("a.md", "alpha")
	cached := NewCachedStore(backend, 4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		doc, err := cached.Get(ctx, "a.md")
		if err != nil || doc.Content != "alpha" {
			t.Fatalf("Get = %+v, %v", doc, err)
		}
	}
	if backend.Gets() != 1 {
		t.Fatalf("expected one backend fetch, got %d", backend.Gets())
	}
}

func TestCachedStoreWritesThrough(t *testing.T) {
	backend := &countingStore{MemStore: NewMemStore()}
	backend.Seed("a.md", "alpha")
	cached := NewCachedStore(backend, 4)
	ctx := context.Background()

	cached.Get(ctx, "a.md")
	if err := cached.Save(ctx, "a.md", "rewritten"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	doc, err := cached.Get(ctx, "a.md")
	if err != nil || doc.Content != "rewritten" {
		t.Fatalf("cache stale after save: %+v, %v", doc, err)
	}
	if content, _ := backend.Content("a.md"); content != "rewritten" {
		t.Fatalf("save did not reach backend: %q", content)
	}
}

func TestCachedStoreFailedSaveDropsEntry(t *testing.T) {
	backend := &countingStore{MemStore: NewMemStore()}
	backend.Seed("a.md", "alpha")
	cached := NewCachedStore(backend, 4)
	ctx := context.Background()

	cached.Get(ctx, "a.md")
	backend.FailSaves = true
	if err := cached.Save(ctx, "a.md", "lost"); err == nil {
		t.Fatalf("expected save failure")
	}
	backend.FailSaves = false

	// Next read must go back to the backend, not serve a guess.
	before := backend.Gets()
	doc, err := cached.Get(ctx, "a.md")
	if err != nil || doc.Content != "alpha" {
		t.Fatalf("Get = %+v, %v", doc, err)
	}
	if backend.Gets() != before+1 {
		t.Fatalf("stale entry served after failed save")
	}
}

func TestCachedStoreDeleteInvalidates(t *testing.T) {
	backend := &countingStore{MemStore: NewMemStore()}
	backend.Seed("a.md", "alpha")
	cached := NewCachedStore(backend, 4)
	ctx := context.Background()

	cached.Get(ctx, "a.md")
	if err := cached.Delete(ctx, "a.md"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := cached.Get(ctx, "a.md"); err == nil {
		t.Fatalf("deleted document still readable")
	}
}
