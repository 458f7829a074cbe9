package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/wbrown/typeql-engine/concept"
)

// TypeCache shares an immutable Schema view per read sequence number
// (§5: "TypeManager and its TypeCache are shared immutably per s; the
// cache is Arc-shared"). Go has no Arc, so sharing is a *concept.Schema
// pointer handed out by value -- callers that obtain one from the
// cache must treat it as read-only; the schema snapshot that produced
// it owns the only mutable reference.
//
// Bounded like the teacher's planner.PlanCache (oldest-entry eviction
// once full), since long-lived query services would otherwise retain
// one Schema per historical sequence number forever.
type TypeCache struct {
	mu      sync.RWMutex
	entries map[SeqNum]*concept.Schema
	order   []SeqNum // insertion order, for oldest-eviction
	maxSize int

	hits, misses int64
}

// NewTypeCache returns a cache bounded to maxSize entries (0 defaults
// to 128).
func NewTypeCache(maxSize int) *TypeCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &TypeCache{
		entries: make(map[SeqNum]*concept.Schema),
		maxSize: maxSize,
	}
}

// Get returns the cached Schema for s, if present.
func (c *TypeCache) Get(s SeqNum) (*concept.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.entries[s]
	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return schema, ok
}

// Put publishes a Schema as the immutable view for sequence number s.
// Callers must not mutate schema after calling Put.
func (c *TypeCache) Put(s SeqNum, schema *concept.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[s]; exists {
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[s] = schema
	c.order = append(c.order, s)
}

func (c *TypeCache) evictOldestLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

// Stats returns cache hit/miss counters and current size.
func (c *TypeCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), len(c.entries)
}
