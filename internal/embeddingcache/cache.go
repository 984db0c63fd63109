// Package embeddingcache provides an in-memory fingerprint-to-vector cache
// shared across concurrent document-processing tasks. Entries are immutable
// once written; there is no eviction policy beyond an explicit Clear.
package embeddingcache

import (
	"sync"
	"time"
)

// Stats reports cache effectiveness counters
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type entry struct {
	vector     []float32
	hitCount   int64
	lastUsedAt time.Time
}

// Cache is a fingerprint-keyed embedding vector store
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	hits    int64
	misses  int64
}

// New creates an empty cache
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Get returns the cached vector for a fingerprint.
// Counters are updated on every call.
func (c *Cache) Get(fingerprint string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	e.hitCount++
	e.lastUsedAt = time.Now()
	return e.vector, true
}

// Put stores a vector under a fingerprint. Overwrites are last-writer-wins;
// they should be rare since fingerprints derive from content.
func (c *Cache) Put(fingerprint string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = &entry{
		vector:     vector,
		lastUsedAt: time.Now(),
	}
}

// Stats returns current counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Clear synchronously wipes all entries and resets counters
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.hits = 0
	c.misses = 0
}
