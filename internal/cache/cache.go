// Package cache provides per-identity time-bound memoization of remote call
// results, keyed by a content fingerprint.
package cache

import (
	"sync"
	"time"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

// DefaultTTL is how long a cached result stays valid.
const DefaultTTL = time.Hour

// DefaultMaxPerIdentity bounds entries per identity. Expiry alone is lazy
// (expired entries linger until looked up or evicted), so the count bound is
// what caps memory.
const DefaultMaxPerIdentity = 64

type entry struct {
	result     *features.Result
	insertedAt time.Time
}

// Cache maps (identity, fingerprint) to a result with a TTL. Lookups treat
// expired entries as absent. When an identity exceeds the entry bound the
// oldest entry is evicted. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	byID   map[int64]map[string]entry
	ttl    time.Duration
	maxPer int
	now    func() time.Time
}

// New creates a Cache with the given TTL and per-identity entry bound.
// Non-positive arguments fall back to the defaults.
func New(ttl time.Duration, maxPerIdentity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxPerIdentity <= 0 {
		maxPerIdentity = DefaultMaxPerIdentity
	}
	return &Cache{
		byID:   make(map[int64]map[string]entry),
		ttl:    ttl,
		maxPer: maxPerIdentity,
		now:    time.Now,
	}
}

// SetTuning updates the TTL and per-identity bound. Existing entries are
// kept; a shorter TTL applies to them on next lookup, a smaller bound applies
// as new entries arrive. Non-positive arguments fall back to the defaults.
func (c *Cache) SetTuning(ttl time.Duration, maxPerIdentity int) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxPerIdentity <= 0 {
		maxPerIdentity = DefaultMaxPerIdentity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
	c.maxPer = maxPerIdentity
}

// Get returns the cached result for (identity, fingerprint), or false when
// absent or older than the TTL. Expired entries found here are removed.
func (c *Cache) Get(identity int64, fingerprint string) (*features.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.byID[identity]
	e, ok := entries[fingerprint]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		delete(entries, fingerprint)
		return nil, false
	}
	return e.result, true
}

// Put stores a result under (identity, fingerprint), evicting the identity's
// oldest entry when the bound is reached.
func (c *Cache) Put(identity int64, fingerprint string, result *features.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.byID[identity]
	if entries == nil {
		entries = make(map[string]entry)
		c.byID[identity] = entries
	}

	if _, exists := entries[fingerprint]; !exists && len(entries) >= c.maxPer {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range entries {
			if oldestKey == "" || e.insertedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.insertedAt
			}
		}
		delete(entries, oldestKey)
	}

	entries[fingerprint] = entry{result: result, insertedAt: c.now()}
}

// Len reports the number of live entries for an identity, counting entries
// that have expired but not yet been looked up.
func (c *Cache) Len(identity int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID[identity])
}
