// Package loop provides the hop from background goroutines onto the single
// goroutine that owns all interaction and registry state.
package loop

import (
	"context"
	"sync"
)

// Mailbox queues functions posted from any goroutine and runs them when the
// owner drains it: once per frame in the viewer, or from Run in headless mode.
type Mailbox struct {
	mu     sync.Mutex
	tasks  []func()
	notify chan struct{}
	closed bool
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Post enqueues fn. It reports false once the mailbox is closed.
func (m *Mailbox) Post(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Drain runs every task queued before the call, in posting order.
// Tasks posted while draining run on the next Drain.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

// Pending returns the number of queued tasks
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Notify fires after Post; it is coalesced, so always Drain fully
func (m *Mailbox) Notify() <-chan struct{} {
	return m.notify
}

// Close rejects further posts. Queued tasks can still be drained.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Run drains the mailbox until ctx is done
func (m *Mailbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.Drain()
			return ctx.Err()
		case <-m.notify:
			m.Drain()
		}
	}
}
