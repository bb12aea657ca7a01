package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/granitemd/granite/internal/docindex"
)

// MemStore is an in-memory Store used by tests and offline sessions.
type MemStore struct {
	mu   sync.Mutex
	docs map[string]string

	// FailSaves makes every Save return an error, for failure-path tests.
	FailSaves bool

	saves int
}

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]string)}
}

// Seed inserts a document without counting as a save.
func (m *MemStore) Seed(p, content string) {
	m.mu.Lock()
	m.docs[p] = content
	m.mu.Unlock()
}

func (m *MemStore) Get(_ context.Context, p string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.docs[p]
	if !ok {
		return Document{}, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return Document{Path: p, Content: content}, nil
}

func (m *MemStore) Save(_ context.Context, p, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves {
		return fmt.Errorf("failed to save note, status code: %d", 500)
	}
	m.docs[p] = content
	m.saves++
	return nil
}

func (m *MemStore) Delete(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[p]; !ok {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	delete(m.docs, p)
	return nil
}

func (m *MemStore) List(_ context.Context) ([]docindex.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]docindex.Entry, 0, len(m.docs))
	for p := range m.docs {
		entries = append(entries, docindex.Entry{
			Path: p,
			Name: path.Base(p),
			Type: docindex.TypeNote,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Saves reports how many saves have succeeded.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Content returns the stored content for a path.
func (m *MemStore) Content(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[p]
	return content, ok
}
