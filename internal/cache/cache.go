// Package cache provides a concurrent in-memory store with per-entry TTLs.
//
// Staleness is evaluated lazily at read time: an entry past its TTL is
// still returned by Get (marked stale) until it is purged or overwritten.
// This is what lets the render loop always show the most recent
// successfully fetched value instead of blocking on the network.
package cache

import (
	"context"
	"sync"
	"time"
)

// Entry is a single cached value with its freshness bookkeeping.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is within its TTL at the given time.
// A zero TTL means the entry never goes stale.
func (e *Entry) Fresh(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.Before(e.CreatedAt.Add(e.TTL))
}

// Cache is a TTL-aware key/value store safe for concurrent use by the
// fetch worker pool and the render loop.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	// now is replaceable for tests.
	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Set stores value under key with the given TTL, replacing any previous
// entry atomically. A ttl of zero means the value never goes stale.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	entry := &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: c.now(),
		TTL:       ttl,
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Get returns the value for key along with its freshness. Stale values
// are returned with fresh=false; ok is false only when the key is absent.
func (c *Cache) Get(key string) (value []byte, fresh bool, ok bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, false
	}
	return entry.Value, entry.Fresh(c.now()), true
}

// GetFresh returns the value for key only if it is within its TTL.
func (c *Cache) GetFresh(key string) (value []byte, ok bool) {
	v, fresh, ok := c.Get(key)
	if !ok || !fresh {
		return nil, false
	}
	return v, true
}

// Purge removes key from the cache. Removing an absent key is a no-op.
func (c *Cache) Purge(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ReapStale removes entries that have been stale for longer than
// retention. It exists purely to reclaim memory; correctness never
// depends on it running.
func (c *Cache) ReapStale(retention time.Duration) int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.TTL <= 0 {
			continue
		}
		if now.Sub(entry.CreatedAt.Add(entry.TTL)) > retention {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// RunReaper periodically reaps entries stale for longer than retention
// until ctx is cancelled. Blocks; run it on its own goroutine.
func (c *Cache) RunReaper(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ReapStale(retention)
		}
	}
}
