package queue

import (
	"testing"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

func TestEnqueue_ReturnsPosition(t *testing.T) {
	q := New()

	if pos := q.Enqueue(Item{Identity: 42, Payload: features.Payload{Text: "a"}}); pos != 1 {
		t.Fatalf("first enqueue position = %d, want 1", pos)
	}
	if pos := q.Enqueue(Item{Identity: 42, Payload: features.Payload{Text: "b"}}); pos != 2 {
		t.Fatalf("second enqueue position = %d, want 2", pos)
	}
}

func TestPop_PreservesFIFOPerIdentity(t *testing.T) {
	q := New()
	q.Enqueue(Item{Identity: 42, Payload: features.Payload{Text: "a"}})
	q.Enqueue(Item{Identity: 42, Payload: features.Payload{Text: "b"}})
	q.Enqueue(Item{Identity: 7, Payload: features.Payload{Text: "other"}})

	first, ok := q.Pop(42)
	if !ok || first.Payload.Text != "a" {
		t.Fatalf("first pop = %+v, want text a", first)
	}
	second, ok := q.Pop(42)
	if !ok || second.Payload.Text != "b" {
		t.Fatalf("second pop = %+v, want text b", second)
	}
	if _, ok := q.Pop(42); ok {
		t.Fatal("queue for identity 42 should be empty")
	}
	if q.Len(7) != 1 {
		t.Fatal("identity 7 queue must be unaffected")
	}
}

func TestPeek_DoesNotRemove(t *testing.T) {
	q := New()
	q.Enqueue(Item{Identity: 42, Payload: features.Payload{Text: "a"}})

	head, ok := q.Peek(42)
	if !ok || head.Payload.Text != "a" {
		t.Fatalf("peek = %+v, want text a", head)
	}
	if q.Len(42) != 1 {
		t.Fatal("peek must leave the item queued")
	}
	if _, ok := q.Peek(7); ok {
		t.Fatal("peek on an empty queue should report absent")
	}
}

func TestEnqueue_DuplicatesAreKept(t *testing.T) {
	q := New()
	q.Enqueue(Item{Identity: 1, Payload: features.Payload{Text: "same"}})
	q.Enqueue(Item{Identity: 1, Payload: features.Payload{Text: "same"}})

	if q.Len(1) != 2 {
		t.Fatalf("len = %d, want 2 (no dedup)", q.Len(1))
	}
}

func TestIdentities_ListsNonEmptyQueues(t *testing.T) {
	q := New()
	q.Enqueue(Item{Identity: 1})
	q.Enqueue(Item{Identity: 2})
	q.Pop(2)

	ids := q.Identities()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("identities = %v, want [1]", ids)
	}
}
