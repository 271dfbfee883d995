package telegram

import (
	"testing"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

func TestMenuOrder_RecentKindsFirst(t *testing.T) {
	recent := func(int64) []features.Kind {
		return []features.Kind{features.KindToonify, features.KindSummarize}
	}

	got := menuOrder(recent, 42)
	if len(got) != len(features.AllKinds) {
		t.Fatalf("menuOrder returned %d kinds, want %d", len(got), len(features.AllKinds))
	}
	if got[0] != features.KindToonify || got[1] != features.KindSummarize {
		t.Errorf("recent kinds not first: got %v, %v", got[0], got[1])
	}

	seen := make(map[features.Kind]bool)
	for _, k := range got {
		if seen[k] {
			t.Errorf("kind %v listed twice", k)
		}
		seen[k] = true
	}
}

func TestMenuOrder_NoLookupFallsBackToAll(t *testing.T) {
	got := menuOrder(nil, 42)
	if len(got) != len(features.AllKinds) {
		t.Fatalf("menuOrder returned %d kinds, want %d", len(got), len(features.AllKinds))
	}
	for i, k := range features.AllKinds {
		if got[i] != k {
			t.Errorf("position %d: got %v, want %v", i, got[i], k)
		}
	}
}

func TestMenuOrder_IgnoresUnknownRecentKinds(t *testing.T) {
	recent := func(int64) []features.Kind {
		return []features.Kind{features.Kind("bogus"), features.KindTextToImage}
	}

	got := menuOrder(recent, 42)
	if got[0] != features.KindTextToImage {
		t.Errorf("got %v first, want %v", got[0], features.KindTextToImage)
	}
	if len(got) != len(features.AllKinds) {
		t.Errorf("menuOrder returned %d kinds, want %d", len(got), len(features.AllKinds))
	}
}
