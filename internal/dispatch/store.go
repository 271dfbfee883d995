package dispatch

import (
	"sync"
	"time"

	"github.com/nextlevelbuilder/musebot/internal/cache"
	"github.com/nextlevelbuilder/musebot/internal/features"
	"github.com/nextlevelbuilder/musebot/internal/queue"
	"github.com/nextlevelbuilder/musebot/internal/ratelimit"
)

// StoreOptions tune the per-identity containers. Zero values pick defaults.
type StoreOptions struct {
	LimiterCapacity int           // tokens per window (default 5)
	LimiterWindow   time.Duration // refill window (default 60s)
	CacheTTL        time.Duration // result cache TTL (default 1h)
	CacheMaxEntries int           // per-identity cache bound (default 64)
	HistoryDepth    int           // recent features kept (default 3)
}

// IdentityStore owns every per-identity container: token buckets, result
// cache, recent-feature history, and the deferred work queue. It is built
// once and handed to the Facade, so per-identity state never lives in
// package-level registries. State is process-lifetime and volatile; nothing
// here survives a restart.
type IdentityStore struct {
	limiter *ratelimit.Limiter
	cache   *cache.Cache
	queue   *queue.Queue
	history *historyLog

	mu       sync.Mutex
	draining map[int64]bool
}

// NewIdentityStore creates the registries with the given options.
func NewIdentityStore(opts StoreOptions) *IdentityStore {
	capacity := opts.LimiterCapacity
	if capacity <= 0 {
		capacity = 5
	}
	window := opts.LimiterWindow
	if window <= 0 {
		window = time.Minute
	}

	return &IdentityStore{
		limiter:  ratelimit.New(capacity, window),
		cache:    cache.New(opts.CacheTTL, opts.CacheMaxEntries),
		queue:    queue.New(),
		history:  newHistoryLog(opts.HistoryDepth),
		draining: make(map[int64]bool),
	}
}

// ApplyTuning retunes the limiter and cache from a reloaded config without
// dropping per-identity state. Zero-valued options pick the same defaults as
// NewIdentityStore.
func (s *IdentityStore) ApplyTuning(opts StoreOptions) {
	capacity := opts.LimiterCapacity
	if capacity <= 0 {
		capacity = 5
	}
	window := opts.LimiterWindow
	if window <= 0 {
		window = time.Minute
	}

	s.limiter.SetRate(capacity, window)
	s.cache.SetTuning(opts.CacheTTL, opts.CacheMaxEntries)
}

// RecentFeatures returns the identity's last invoked feature kinds, most
// recent first. Used by channels to personalize the feature menu.
func (s *IdentityStore) RecentFeatures(identity int64) []features.Kind {
	return s.history.Recent(identity)
}

// QueueLen reports pending deferred items for an identity.
func (s *IdentityStore) QueueLen(identity int64) int {
	return s.queue.Len(identity)
}

// beginDrain marks the identity as being drained. Returns false when a drain
// is already in flight, so the ticker and the opportunistic drain-on-request
// path never process the same identity's queue concurrently (single-flight).
func (s *IdentityStore) beginDrain(identity int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining[identity] {
		return false
	}
	s.draining[identity] = true
	return true
}

func (s *IdentityStore) endDrain(identity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.draining, identity)
}
