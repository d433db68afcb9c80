package queue

import (
	"errors"
	"sync"
)

// ErrEmpty is returned when popping from an empty queue.
var ErrEmpty = errors.New("queue is empty")

// Queue is a bounded FIFO queue.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
}

// New creates a queue holding at most limit items.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends v, dropping the oldest item when full.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.limit {
		q.items = q.items[1:]
	}
	q.items = append(q.items, v)
}

// Pop removes and returns the oldest item.
func (q *Queue[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, ErrEmpty
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
