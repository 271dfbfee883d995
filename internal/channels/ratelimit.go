package channels

import (
	"sync"
	"time"
)

const (
	// maxTrackedSenders caps the number of tracked senders to prevent
	// memory exhaustion from rotating sender IDs.
	maxTrackedSenders = 4096

	// DefaultFloodWindow is the sliding window for inbound flood counting.
	DefaultFloodWindow = 10 * time.Second

	// DefaultFloodMaxHits is the max inbound messages per sender per window.
	DefaultFloodMaxHits = 20
)

type floodEntry struct {
	windowStart time.Time
	count       int
}

// FloodLimiter throttles inbound message bursts per sender before anything
// else touches them. This is a cheap front guard distinct from the feature
// token bucket: it protects the channel's own event loop, not the remote
// API quota. Safe for concurrent use.
type FloodLimiter struct {
	mu      sync.Mutex
	entries map[int64]*floodEntry
	window  time.Duration
	maxHits int
}

// NewFloodLimiter creates a bounded flood limiter. Non-positive arguments
// fall back to the defaults.
func NewFloodLimiter(window time.Duration, maxHits int) *FloodLimiter {
	if window <= 0 {
		window = DefaultFloodWindow
	}
	if maxHits <= 0 {
		maxHits = DefaultFloodMaxHits
	}
	return &FloodLimiter{
		entries: make(map[int64]*floodEntry),
		window:  window,
		maxHits: maxHits,
	}
}

// Allow returns true if the sender is within limits.
// Automatically prunes stale entries and enforces a hard cap on tracked senders.
func (f *FloodLimiter) Allow(senderID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()

	// Prune stale entries when approaching the cap
	if len(f.entries) >= maxTrackedSenders {
		for id, e := range f.entries {
			if now.Sub(e.windowStart) >= f.window {
				delete(f.entries, id)
			}
		}
		// Hard eviction if still at cap
		for len(f.entries) >= maxTrackedSenders {
			for id := range f.entries {
				delete(f.entries, id)
				break
			}
		}
	}

	e, ok := f.entries[senderID]
	if !ok || now.Sub(e.windowStart) >= f.window {
		f.entries[senderID] = &floodEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= f.maxHits
}
