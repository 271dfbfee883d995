// Package ratelimit provides per-identity token-bucket admission control for
// outbound remote API calls.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per identity. Each bucket has capacity C
// and refills C tokens per window; buckets are created full on first use and
// are fully independent; no fairness is coordinated across identities.
// Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[int64]*rate.Limiter
	capacity int
	window   time.Duration
}

// New creates a Limiter allowing capacity calls per identity per window.
func New(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		buckets:  make(map[int64]*rate.Limiter),
		capacity: capacity,
		window:   window,
	}
}

func (l *Limiter) bucket(identity int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.window/time.Duration(l.capacity)), l.capacity)
		l.buckets[identity] = b
	}
	return b
}

// SetRate retunes the limiter to capacity calls per window. Existing buckets
// are adjusted in place (tokens above the new capacity are clamped on next
// use); buckets created afterwards start full at the new capacity.
func (l *Limiter) SetRate(capacity int, window time.Duration) {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.capacity = capacity
	l.window = window
	limit := rate.Every(window / time.Duration(capacity))
	for _, b := range l.buckets {
		b.SetLimit(limit)
		b.SetBurst(capacity)
	}
}

// TryAcquire consumes one token from the identity's bucket if available.
// Returns false without side effect when the bucket is empty.
func (l *Limiter) TryAcquire(identity int64) bool {
	return l.bucket(identity).Allow()
}

// tryAcquireAt is TryAcquire against an explicit clock, for tests.
func (l *Limiter) tryAcquireAt(t time.Time, identity int64) bool {
	return l.bucket(identity).AllowN(t, 1)
}

// Acquire blocks until a token is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context, identity int64) error {
	return l.bucket(identity).Wait(ctx)
}

// Tokens reports the identity's currently available tokens.
func (l *Limiter) Tokens(identity int64) float64 {
	return l.bucket(identity).Tokens()
}
