package geo

import (
	"sync"
	"time"
)

// Cache is a concurrency-safe TTL cache of geocoder answers, keyed by the
// normalized input text. Expired entries are evicted lazily when a lookup
// touches them, never proactively. Concurrent misses on the same key may
// both populate it; entries are pure functions of their key, so
// last-write-wins is harmless.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	match    ScopeMatch
	storedAt time.Time
}

// NewCache returns an empty cache whose entries live for ttl. A non-positive
// ttl disables expiry.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached match for text, if present and fresh. An expired
// entry is removed on the spot and reported as a miss.
func (c *Cache) Get(text string) (ScopeMatch, bool) {
	key := normalizeKey(text)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return ScopeMatch{}, false
	}

	if c.expired(e) {
		c.mu.Lock()
		// Re-check: the entry may have been refreshed since the RUnlock.
		if cur, ok := c.entries[key]; ok && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return ScopeMatch{}, false
	}
	return e.match, true
}

// Put stores a match for text, replacing any existing entry.
func (c *Cache) Put(text string, m ScopeMatch) {
	key := normalizeKey(text)
	c.mu.Lock()
	c.entries[key] = cacheEntry{match: m, storedAt: c.now()}
	c.mu.Unlock()
}

// Len reports the number of entries currently held, including any not yet
// evicted expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(e cacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(e.storedAt) >= c.ttl
}
