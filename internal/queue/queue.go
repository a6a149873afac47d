// Package queue provides the bounded in-memory buffer between event
// producers and the flush worker.
package queue

import (
	"sync"
	"sync/atomic"
)

// Queue is a bounded FIFO of serialized, already-redacted event maps.
// Enqueue never blocks: when full, the new event is dropped and counted.
type Queue struct {
	mu      sync.Mutex
	items   []map[string]any
	cap     int
	dropped atomic.Uint64
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{cap: capacity}
}

// Enqueue appends an event. Returns false when the queue is full and the
// event was dropped.
func (q *Queue) Enqueue(event map[string]any) bool {
	q.mu.Lock()
	if len(q.items) >= q.cap {
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}
	q.items = append(q.items, event)
	q.mu.Unlock()
	return true
}

// DrainUpTo atomically removes and returns up to n pending events in FIFO
// order.
func (q *Queue) DrainUpTo(n int) []map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	if n == 0 {
		return nil
	}
	batch := make([]map[string]any, n)
	copy(batch, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return batch
}

// Requeue prepends events that failed delivery, preserving approximate FIFO
// order for the next attempt. If the combined length exceeds capacity the
// newest tail is dropped and counted.
func (q *Queue) Requeue(events []map[string]any) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	combined := make([]map[string]any, 0, len(events)+len(q.items))
	combined = append(combined, events...)
	combined = append(combined, q.items...)
	if len(combined) > q.cap {
		q.dropped.Add(uint64(len(combined) - q.cap))
		combined = combined[:q.cap]
	}
	q.items = combined
	q.mu.Unlock()
}

// Len is an approximate, non-blocking-in-spirit size read used for
// scheduling heuristics only.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of events dropped due to a full queue.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
