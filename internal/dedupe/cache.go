package dedupe

import (
	"sync"
	"time"
)

type stamp struct {
	hash string
	ts   time.Time
}

type entry struct {
	key string
	ts  time.Time
}

// Cache remembers the content hash last indexed for each document key so that
// redelivered or unchanged events can be skipped. It holds at most capacity
// keys and forgets entries older than ttl.
type Cache struct {
	mu       sync.Mutex
	items    map[string]stamp
	order    []entry
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]stamp, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Unchanged reports whether key was indexed with hash inside the ttl window.
// It does not record anything; use Remember after a successful write.
func (c *Cache) Unchanged(key, hash string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.items[key]
	return ok && s.hash == hash && now.Sub(s.ts) <= c.ttl
}

// Remember records that key is now indexed with hash.
func (c *Cache) Remember(key, hash string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = stamp{hash: hash, ts: now}
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

// Forget drops key, so the next upsert for it is always written.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of remembered keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// a newer Remember for the same key supersedes this entry
		if s, ok := c.items[oldest.key]; ok && s.ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
