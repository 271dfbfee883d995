package dispatch

import (
	"sync"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

// DefaultHistoryDepth is how many recent feature invocations are remembered
// per identity for menu personalization.
const DefaultHistoryDepth = 3

// historyLog keeps a bounded per-identity log of the last N feature kinds.
// Pure FIFO eviction, no scoring. Safe for concurrent use.
type historyLog struct {
	mu    sync.Mutex
	depth int
	byID  map[int64][]features.Kind
}

func newHistoryLog(depth int) *historyLog {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &historyLog{depth: depth, byID: make(map[int64][]features.Kind)}
}

// Append records a feature invocation, evicting the oldest entry on overflow.
func (h *historyLog) Append(identity int64, kind features.Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := append(h.byID[identity], kind)
	if len(log) > h.depth {
		log = log[len(log)-h.depth:]
	}
	h.byID[identity] = log
}

// Recent returns the identity's logged kinds, most recent first.
func (h *historyLog) Recent(identity int64) []features.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := h.byID[identity]
	out := make([]features.Kind, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, log[i])
	}
	return out
}
