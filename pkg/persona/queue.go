package persona

import (
	"context"
	"sync"
)

// Queue is an unbounded, goroutine-safe FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	// ready holds a token while items may be available.
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Put appends v.
func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
}

// TryGet removes and returns the head without blocking.
func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return v, true
}

// Get removes and returns the head, blocking until an item is available or
// ctx is done.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		if v, ok := q.TryGet(); ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Drain removes and returns every queued item in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []T{}
	}
	return out
}

// PopN removes exactly n items when at least n are queued. Otherwise nothing
// is removed and ok is false.
func (q *Queue[T]) PopN(n int) (items []T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || len(q.items) < n {
		return nil, false
	}
	items = make([]T, n)
	copy(items, q.items[:n])
	q.items = append(q.items[:0:0], q.items[n:]...)
	if len(q.items) > 0 {
		q.signal()
	}
	return items, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
