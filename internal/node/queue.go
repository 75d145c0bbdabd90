package node

import (
	"sync"

	"github.com/eapache/queue"
)

// fifo is an unbounded blocking FIFO. Consumers wait on a condition
// variable, never poll. Once closed, push fails and pop drains what is left
// before reporting false.
type fifo[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *queue.Queue
	closed bool
}

func newFIFO[T any]() *fifo[T] {
	q := &fifo[T]{items: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends v. It returns false if the queue is closed.
func (q *fifo[T]) push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.Add(v)
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// pop blocks until an item is available or the queue is closed and empty.
func (q *fifo[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Remove().(T), true
}

// tryPop removes the head without blocking.
func (q *fifo[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Remove().(T), true
}

func (q *fifo[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// close stops intake and wakes every waiter.
func (q *fifo[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

func (q *fifo[T]) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
