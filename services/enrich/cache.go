package enrich

import "sync"

// Meta is a title/thumbnail pair produced by a metadata lookup.
type Meta struct {
	Title string
	Thumb string
}

// Cache stores lookup outcomes per logical content key for the lifetime of
// the process. A stored nil is meaningful: it records that no metadata could
// be found, so the chain is not retried on every request.
type Cache interface {
	Get(key string) (*Meta, bool)
	Set(key string, meta *Meta)
}

// memoryCache is a size-capped in-memory Cache. Writes are last-write-wins;
// values are content-addressed so a racing duplicate fetch is harmless.
type memoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*Meta
	maxEntries int
}

// NewMemoryCache returns an in-memory cache. maxEntries <= 0 means
// unbounded, which is acceptable for a personal tool where the key space is
// the set of distinct titles ever browsed.
func NewMemoryCache(maxEntries int) Cache {
	return &memoryCache{entries: map[string]*Meta{}, maxEntries: maxEntries}
}

func (c *memoryCache) Get(key string) (*Meta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[key]
	return meta, ok
}

func (c *memoryCache) Set(key string, meta *Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			// Evict an arbitrary entry; access patterns here are one
			// pipeline pass per request, so recency tracking buys little.
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
	}
	c.entries[key] = meta
}
