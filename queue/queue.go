// Package queue provides an unbounded, goroutine-safe FIFO used as the
// handoff primitive between providers, hooks, and foreign callers.
//
// Put never blocks. Get suspends the caller until an item is available or
// its context is done, so a single Queue can serve as the inbound or outbound
// side of a hook as well as the bridge between a worker thread and the
// scheduler that consumes its output.
package queue

import (
	"context"
	"sync"
)

type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	notify  chan struct{}
	waiters int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}),
	}
}

// Put appends item to the tail of the queue and wakes any suspended Get.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	if q.waiters > 0 {
		close(q.notify)
		q.notify = make(chan struct{})
	}
}

// Get removes and returns the head of the queue, waiting for one to arrive
// if the queue is empty. It returns ctx.Err() once ctx is done; an item that
// arrives concurrently with cancellation stays queued.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if item, ok := q.pop(); ok {
			q.mu.Unlock()
			return item, nil
		}
		wait := q.notify
		q.waiters++
		q.mu.Unlock()

		var err error
		select {
		case <-wait:
		case <-ctx.Done():
			err = ctx.Err()
		}

		q.mu.Lock()
		q.waiters--
		q.mu.Unlock()

		if err != nil {
			var zero T
			return zero, err
		}
	}
}

func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Drain removes every pending item and returns them in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true
}
