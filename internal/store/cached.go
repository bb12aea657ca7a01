package store

import (
	"context"

	"github.com/granitemd/granite/internal/cache"
	"github.com/granitemd/granite/internal/docindex"
)

// CachedStore keeps recently fetched documents in a bounded LRU so that
// reopening a recently evicted pane skips the network round trip. Saves and
// deletes write through, keeping the cache coherent with the backend.
type CachedStore struct {
	inner Store
	docs  *cache.LRU[string, Document]
}

// NewCachedStore wraps inner with an LRU holding up to limit documents.
func NewCachedStore(inner Store, limit int) *CachedStore {
	return &CachedStore{
		inner: inner,
		docs:  cache.New[string, Document](limit),
	}
}

func (s *CachedStore) Get(ctx context.Context, path string) (Document, error) {
	if doc, ok := s.docs.Get(path); ok {
		return doc, nil
	}

	doc, err := s.inner.Get(ctx, path)
	if err != nil {
		return Document{}, err
	}
	s.docs.Put(path, doc)
	return doc, nil
}

func (s *CachedStore) Save(ctx context.Context, path, content string) error {
	if err := s.inner.Save(ctx, path, content); err != nil {
		// The backend may or may not have applied the write; drop the stale
		// copy rather than guess.
		s.docs.Remove(path)
		return err
	}
	s.docs.Put(path, Document{Path: path, Content: content})
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, path string) error {
	s.docs.Remove(path)
	return s.inner.Delete(ctx, path)
}

func (s *CachedStore) List(ctx context.Context) ([]docindex.Entry, error) {
	return s.inner.List(ctx)
}

// Invalidate drops a cached document, forcing the next Get to refetch.
func (s *CachedStore) Invalidate(path string) {
	s.docs.Remove(path)
}
