package bus

import "sync"

// compactThreshold is how many consumed slots the queue tolerates at the
// front of its buffer before copying the pending tail down.
const compactThreshold = 1024

// messageQueue is an unbounded multi-producer, single-consumer FIFO.
// offer never blocks on the consumer; a one-slot wake channel lets the
// consumer sleep until something arrives.
type messageQueue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	wake  chan struct{}
}

func newMessageQueue[T any]() *messageQueue[T] {
	return &messageQueue[T]{
		wake: make(chan struct{}, 1),
	}
}

func (q *messageQueue[T]) offer(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
}

// poll removes the oldest item without blocking.
func (q *messageQueue[T]) poll() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.head == len(q.items) {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return item, true
}

// signal wakes the consumer. Signals coalesce: at most one is pending.
func (q *messageQueue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *messageQueue[T]) ready() <-chan struct{} {
	return q.wake
}

func (q *messageQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
