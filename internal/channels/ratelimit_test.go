package channels

import (
	"testing"
	"time"
)

func TestFloodLimiterAllowsWithinLimit(t *testing.T) {
	l := NewFloodLimiter(time.Minute, 5)
	for i := 0; i < 5; i++ {
		if !l.Allow(42) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(42) {
		t.Fatal("request over the limit should be denied")
	}
}

func TestFloodLimiterWindowReset(t *testing.T) {
	l := NewFloodLimiter(20*time.Millisecond, 2)
	l.Allow(1)
	l.Allow(1)
	if l.Allow(1) {
		t.Fatal("third hit inside window should be denied")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow(1) {
		t.Fatal("hit after window expiry should be allowed")
	}
}

func TestFloodLimiterSendersIndependent(t *testing.T) {
	l := NewFloodLimiter(time.Minute, 1)
	if !l.Allow(1) {
		t.Fatal("first sender should be allowed")
	}
	if !l.Allow(2) {
		t.Fatal("second sender should be allowed")
	}
	if l.Allow(1) {
		t.Fatal("first sender is over its limit")
	}
}

func TestFloodLimiterCapEviction(t *testing.T) {
	l := NewFloodLimiter(time.Minute, 1)
	for i := int64(0); i < maxTrackedSenders; i++ {
		l.Allow(i)
	}
	// The cap forces eviction so a new sender still gets through.
	if !l.Allow(int64(maxTrackedSenders + 1)) {
		t.Fatal("new sender should be allowed after eviction")
	}
	if len(l.entries) > maxTrackedSenders {
		t.Fatalf("tracked senders %d exceeds cap", len(l.entries))
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
