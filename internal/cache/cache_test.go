package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

func TestGet_WithinTTL(t *testing.T) {
	c := New(time.Hour, 0)
	want := &features.Result{Kind: features.KindTextGenerator, Text: "hello"}

	c.Put(42, "fp-1", want)
	got, ok := c.Get(42, "fp-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Text != want.Text {
		t.Fatalf("got %q, want %q", got.Text, want.Text)
	}
}

func TestGet_AfterTTLIsMiss(t *testing.T) {
	c := New(time.Hour, 0)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put(42, "fp-1", &features.Result{Text: "stale"})

	c.now = func() time.Time { return base.Add(time.Hour) }
	if _, ok := c.Get(42, "fp-1"); ok {
		t.Fatal("entry older than TTL must be a miss")
	}
	if c.Len(42) != 0 {
		t.Fatal("expired entry should be removed on lookup")
	}
}

func TestGet_DistinctFingerprintsDoNotCollide(t *testing.T) {
	c := New(time.Hour, 0)

	fpA := features.Fingerprint(features.KindTextToImage, features.Payload{Text: "cat in space"})
	fpB := features.Fingerprint(features.KindTextToImage, features.Payload{Text: "dog in space"})
	if fpA == fpB {
		t.Fatal("distinct payloads produced the same fingerprint")
	}

	c.Put(1, fpA, &features.Result{Text: "cat"})
	if _, ok := c.Get(1, fpB); ok {
		t.Fatal("false cache hit across fingerprints")
	}
}

func TestFingerprint_NormalizesText(t *testing.T) {
	a := features.Fingerprint(features.KindSummarize, features.Payload{Text: "  Cat In Space "})
	b := features.Fingerprint(features.KindSummarize, features.Payload{Text: "cat in space"})
	if a != b {
		t.Fatal("normalized payloads should fingerprint identically")
	}
}

func TestPut_EvictsOldestAtBound(t *testing.T) {
	c := New(time.Hour, 3)
	base := time.Now()
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 4; i++ {
		c.Put(9, fmt.Sprintf("fp-%d", i), &features.Result{Text: fmt.Sprintf("r%d", i)})
	}

	if c.Len(9) != 3 {
		t.Fatalf("len = %d, want 3", c.Len(9))
	}
	if _, ok := c.Get(9, "fp-0"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get(9, "fp-3"); !ok {
		t.Fatal("newest entry should survive eviction")
	}
}

func TestSetTuning_ShorterTTLAppliesToExistingEntries(t *testing.T) {
	c := New(time.Hour, 0)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put(42, "fp-1", &features.Result{Text: "kept"})

	c.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, ok := c.Get(42, "fp-1"); !ok {
		t.Fatal("entry should be live under the original TTL")
	}

	c.SetTuning(10*time.Minute, 0)
	if _, ok := c.Get(42, "fp-1"); ok {
		t.Fatal("entry older than the retuned TTL must be a miss")
	}
}

func TestSetTuning_SmallerBoundEvictsOnNextPut(t *testing.T) {
	c := New(time.Hour, 3)
	base := time.Now()
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 3; i++ {
		c.Put(9, fmt.Sprintf("fp-%d", i), &features.Result{Text: fmt.Sprintf("r%d", i)})
	}

	c.SetTuning(time.Hour, 2)
	c.Put(9, "fp-3", &features.Result{Text: "r3"})

	if _, ok := c.Get(9, "fp-0"); ok {
		t.Fatal("oldest entry should be evicted under the smaller bound")
	}
	if _, ok := c.Get(9, "fp-3"); !ok {
		t.Fatal("newest entry should survive")
	}
}

func TestCache_IdentitiesAreIsolated(t *testing.T) {
	c := New(time.Hour, 0)
	c.Put(1, "fp", &features.Result{Text: "one"})
	if _, ok := c.Get(2, "fp"); ok {
		t.Fatal("entry leaked across identities")
	}
}
