// Package queue provides the per-identity FIFO of deferred feature requests
// drained when limiter capacity returns.
package queue

import (
	"sync"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

// Item is one deferred feature request. Channel and ChatID identify the
// output sink the eventual result is delivered to.
type Item struct {
	Identity int64
	Kind     features.Kind
	Payload  features.Payload
	Channel  string
	ChatID   int64
}

// Queue holds one FIFO per identity. No priority and no dedup: a second
// identical request queues a duplicate entry. Safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items map[int64][]Item
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{items: make(map[int64][]Item)}
}

// Enqueue appends the item to its identity's FIFO and returns its 1-based
// position, which doubles as the user-facing "queued at position N" ack.
func (q *Queue) Enqueue(item Item) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items[item.Identity] = append(q.items[item.Identity], item)
	return len(q.items[item.Identity])
}

// Peek returns the oldest item for the identity without removing it.
func (q *Queue) Peek(identity int64) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	fifo := q.items[identity]
	if len(fifo) == 0 {
		return Item{}, false
	}
	return fifo[0], true
}

// Pop removes and returns the oldest item for the identity.
func (q *Queue) Pop(identity int64) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	fifo := q.items[identity]
	if len(fifo) == 0 {
		return Item{}, false
	}
	item := fifo[0]
	if len(fifo) == 1 {
		delete(q.items, identity)
	} else {
		q.items[identity] = fifo[1:]
	}
	return item, true
}

// Len reports the number of pending items for the identity.
func (q *Queue) Len(identity int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items[identity])
}

// Identities returns every identity with at least one pending item.
func (q *Queue) Identities() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]int64, 0, len(q.items))
	for id := range q.items {
		ids = append(ids, id)
	}
	return ids
}
