package ratelimit

import (
	"testing"
	"time"
)

func TestTryAcquire_AdmitsUpToCapacity(t *testing.T) {
	lim := New(5, time.Minute)
	now := time.Now()

	for i := 0; i < 5; i++ {
		if !lim.tryAcquireAt(now, 42) {
			t.Fatalf("call %d rejected within capacity", i+1)
		}
	}
	if lim.tryAcquireAt(now, 42) {
		t.Fatal("6th call admitted in the same window")
	}
}

func TestTryAcquire_RefillsOverTime(t *testing.T) {
	lim := New(5, time.Minute)
	now := time.Now()

	for i := 0; i < 5; i++ {
		lim.tryAcquireAt(now, 7)
	}
	if lim.tryAcquireAt(now, 7) {
		t.Fatal("bucket not empty after capacity consumed")
	}

	// One token refills every window/capacity = 12s.
	if lim.tryAcquireAt(now.Add(11*time.Second), 7) {
		t.Fatal("token admitted before refill interval elapsed")
	}
	if !lim.tryAcquireAt(now.Add(13*time.Second), 7) {
		t.Fatal("token not admitted after refill interval")
	}
}

func TestTryAcquire_BucketsAreIndependent(t *testing.T) {
	lim := New(2, time.Minute)
	now := time.Now()

	lim.tryAcquireAt(now, 1)
	lim.tryAcquireAt(now, 1)
	if lim.tryAcquireAt(now, 1) {
		t.Fatal("identity 1 bucket should be empty")
	}
	if !lim.tryAcquireAt(now, 2) {
		t.Fatal("identity 2 bucket should be untouched")
	}
}

func TestSetRate_RetunesExistingAndNewBuckets(t *testing.T) {
	lim := New(5, time.Minute)
	now := time.Now()

	// Touch identity 1 so its bucket exists before the retune.
	if !lim.tryAcquireAt(now, 1) {
		t.Fatal("initial acquire should succeed")
	}

	lim.SetRate(2, time.Minute)

	// The existing bucket's tokens are clamped to the new capacity.
	if !lim.tryAcquireAt(now, 1) || !lim.tryAcquireAt(now, 1) {
		t.Fatal("existing bucket should admit up to the new capacity")
	}
	if lim.tryAcquireAt(now, 1) {
		t.Fatal("existing bucket admitted past the new capacity")
	}

	// A bucket created after the retune starts full at the new capacity.
	if !lim.tryAcquireAt(now, 2) || !lim.tryAcquireAt(now, 2) {
		t.Fatal("new bucket should start full at the new capacity")
	}
	if lim.tryAcquireAt(now, 2) {
		t.Fatal("new bucket admitted past the new capacity")
	}
}

func TestNew_ClampsInvalidParams(t *testing.T) {
	lim := New(0, 0)
	if !lim.TryAcquire(1) {
		t.Fatal("clamped limiter should still admit the first call")
	}
}
