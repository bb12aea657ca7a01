// Package cache provides the bounded LRU used to keep recently closed
// documents warm, so reopening an evicted pane does not always pay a
// network round trip.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a size-bounded least-recently-used cache. The zero value is not
// usable; construct with New.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	limit     int
	evictList *list.List
	items     map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates an LRU holding at most limit entries.
func New[K comparable, V any](limit int) *LRU[K, V] {
	if limit <= 0 {
		limit = 1
	}
	return &LRU[K, V]{
		limit:     limit,
		evictList: list.New(),
		items:     make(map[K]*list.Element),
	}
}

// Get returns the cached value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, hit := c.items[key]; hit {
		c.evictList.MoveToFront(ele)
		return ele.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put inserts or updates a value, evicting the least recently used entry
// when over the limit.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, hit := c.items[key]; hit {
		c.evictList.MoveToFront(ele)
		ele.Value.(*entry[K, V]).value = value
		return
	}

	ele := c.evictList.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = ele

	if c.evictList.Len() > c.limit {
		c.removeOldest()
	}
}

// Remove drops an entry if present.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, hit := c.items[key]; hit {
		c.removeElement(ele)
	}
}

// Len reports the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *LRU[K, V]) removeOldest() {
	if ele := c.evictList.Back(); ele != nil {
		c.removeElement(ele)
	}
}

func (c *LRU[K, V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*entry[K, V]).key)
}
