package memory

import (
	"sync"
	"sync/atomic"
)

// inbox is an unbounded FIFO of callbacks drained by a single goroutine.
// Handlers may enqueue work for their own peer without deadlocking.
type inbox struct {
	mu      sync.Mutex
	items   []func()
	signal  chan struct{}
	done    chan struct{}
	pending atomic.Int64
	closed  bool
}

func newInbox() *inbox {
	q := &inbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *inbox) push(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, fn)
	q.pending.Add(1)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *inbox) run() {
	for {
		select {
		case <-q.done:
			return
		case <-q.signal:
		}

		for {
			q.mu.Lock()
			if len(q.items) == 0 || q.closed {
				q.mu.Unlock()
				break
			}
			fn := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()

			fn()
			q.pending.Add(-1)
		}
	}
}

func (q *inbox) idle() bool {
	return q.pending.Load() == 0
}

func (q *inbox) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.pending.Add(-int64(len(q.items)))
	q.items = nil
	close(q.done)
}
