package search

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by push helpers when a bounded queue has no room.
var ErrQueueFull = errors.New("work queue is full")

// compactThreshold is the number of consumed slots after which Pop reclaims
// the front of the backing slice.
const compactThreshold = 1000

// WorkQueue is a concurrency-safe FIFO of directory paths awaiting a scan.
//
// The same mutex guards the pending items, the active-worker count and the
// termination/stop flags, so "queue empty and nobody active" is observed as
// a single fact. See termination.go for Acquire/Release.
type WorkQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []string
	head     int // index of the next item to pop; avoids O(n) re-slicing
	capacity int // 0 means unbounded

	active     int
	terminated bool
	stopped    bool
}

// NewWorkQueue creates a queue. capacity <= 0 makes it unbounded.
func NewWorkQueue(capacity int) *WorkQueue {
	if capacity < 0 {
		capacity = 0
	}
	q := &WorkQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends dir and wakes one waiting worker. It returns false only when
// the queue is bounded and full; callers must retry or scan dir themselves.
func (q *WorkQueue) Push(dir string) bool {
	q.mu.Lock()
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, dir)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// Pop removes and returns the oldest pending directory without blocking.
// Returns ("", false) when the queue is empty.
func (q *WorkQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// IsEmpty reports whether no directory is pending.
func (q *WorkQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked() == 0
}

// Len returns the number of pending directories.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Capacity returns the bound, or 0 for an unbounded queue.
func (q *WorkQueue) Capacity() int {
	return q.capacity
}

func (q *WorkQueue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *WorkQueue) popLocked() (string, bool) {
	if q.head >= len(q.items) {
		return "", false
	}
	item := q.items[q.head]
	q.items[q.head] = "" // release string reference so GC can collect it
	q.head++
	// Compact once the consumed prefix dominates the backing array.
	if q.head >= compactThreshold && q.head >= len(q.items)/2 {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}
