// Package cache provides a thread-safe cache with per-entry expiration.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
	added   uint64
}

// TTLCache is a thread-safe cache with time-based expiration.
// Each entry expires ttl after it was stored. When the cache holds
// maxEntries live entries, storing a new key evicts the oldest one.
type TTLCache[K comparable, V any] struct {
	mu         sync.RWMutex
	data       map[K]entry[V]
	ttl        time.Duration
	maxEntries int
	seq        uint64
	now        func() time.Time
}

// New creates a new TTLCache. A maxEntries of zero or less means unbounded.
func New[K comparable, V any](ttl time.Duration, maxEntries int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data:       make(map[K]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get retrieves a value from the cache.
// Returns zero value and ok=false if the key doesn't exist or has expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value, replacing any previous value for key.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.purgeLocked(now)
		if len(c.data) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}

	c.seq++
	c.data[key] = entry[V]{value: value, expires: now.Add(c.ttl), added: c.seq}
}

// Delete removes key from the cache.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Purge drops every expired entry and returns how many were removed.
func (c *TTLCache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

// Invalidate clears all cached data.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]entry[V])
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// purgeLocked MUST be called with the write lock held.
func (c *TTLCache[K, V]) purgeLocked(now time.Time) int {
	n := 0
	for k, e := range c.data {
		if !now.Before(e.expires) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

// evictOldestLocked MUST be called with the write lock held.
func (c *TTLCache[K, V]) evictOldestLocked() {
	var (
		oldest K
		seq    uint64
		found  bool
	)
	for k, e := range c.data {
		if !found || e.added < seq {
			oldest, seq, found = k, e.added, true
		}
	}
	if found {
		delete(c.data, oldest)
	}
}
