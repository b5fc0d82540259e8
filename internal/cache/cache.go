// Package cache provides a small expiring key/value store used to avoid
// redundant upstream calls.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a TTL cache with a bounded size. Entries expire a fixed duration
// after insertion and are evicted lazily on Get; when an insert would exceed
// capacity the single oldest-inserted entry is dropped first (FIFO by age,
// not LRU). All operations hold one coarse lock, which is adequate because
// they are O(1) map operations, not I/O.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]entry[V]
}

// New creates a cache holding up to maxSize entries for ttl each.
// maxSize <= 0 means unbounded.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]entry[V]),
	}
}

// Get returns the cached value if present and not expired. Stale entries are
// deleted on the way out.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

// Set inserts or overwrites the entry, stamping it with the current time.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize > 0 {
		if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
			c.evictOldestLocked()
		}
	}
	c.items[key] = entry[V]{value: value, insertedAt: time.Now()}
}

func (c *Cache[V]) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.items {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.insertedAt
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry[V])
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// TTL reports the configured entry lifetime.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }
