// Package cache memoizes fetched responses for a bounded time window.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache maps keys to values that go stale after a fixed duration.
// Staleness is checked on read only; stale entries are never swept.
type Cache[V any] struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	ttl        time.Duration
	maxEntries int
	entries    map[string]entry[V]
}

// New creates a cache. maxEntries <= 0 means unbounded.
func New[V any](clock clockwork.Clock, ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		clock:      clock,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]entry[V]),
	}
}

// Get returns the value for key and when it was stored, or ok == false if
// the key is absent or stale.
func (c *Cache[V]) Get(key string) (value V, storedAt time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || c.clock.Since(e.storedAt) >= c.ttl {
		return value, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Put stores value under key with the current time, replacing any previous
// entry. When the cache is full the oldest entry makes room.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.clock.Now()}
}

func (c *Cache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		first     = true
	)
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.storedAt, false
		}
	}
	delete(c.entries, oldestKey)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len counts stored entries, stale ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
