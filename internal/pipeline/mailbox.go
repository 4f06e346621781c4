package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrClosed is returned by Send on a closed mailbox, and by Receive once a
// closed mailbox has been drained.
var ErrClosed = errors.New("pipeline: mailbox closed")

// Mailbox is an unbounded FIFO for one producer and one consumer. Send never
// blocks; Receive blocks until an item arrives, the mailbox is closed, or ctx
// ends.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// NewMailbox creates an empty, open mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		items:  queue.New(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send appends v. It fails with ErrClosed once the mailbox is closed.
func (m *Mailbox[T]) Send(v T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.items.Add(v)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// Receive removes and returns the oldest item. Items sent before Close are
// still delivered; after that Receive returns ErrClosed.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		m.mu.Lock()
		if m.items.Length() > 0 {
			v := m.items.Remove().(T)
			m.mu.Unlock()
			return v, nil
		}
		closed := m.closed
		m.mu.Unlock()

		if closed {
			return zero, ErrClosed
		}

		select {
		case <-m.notify:
		case <-m.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close stops further sends and wakes a blocked receiver. It is safe to call
// more than once.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Length()
}
