/*
Package registry provides the in-memory mailbox fabric the relay routes
through: Mailbox (per-connection bounded queue), Group (per-room peer
registry), and Manager (per-group registry of Groups).

Key design carried over from the delivery-service actor model this package
was distilled from:
  - Backpressure is local and silent: a full Mailbox drops its oldest entry
    rather than blocking the producer.
  - Wake signals are coalesced: N sends between two drains produce at most
    one wake, but a drain always removes everything pending.
  - Lookups take no lock of this package's own: the LRU cache serializes
    access internally; concurrent first-lookups for the same key are serialized with
    singleflight so exactly one Mailbox gets constructed per key.
*/
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
)

// Mailbox is a bounded, idle-evicting queue of messages for a single
// (group, peer, conn) triple.
type Mailbox struct {
	mu       sync.Mutex
	queue    []relay.Message
	capacity int

	// waitCh is a single-slot, edge-triggered notifier: Send does a
	// non-blocking push, so bursts between two drains coalesce into one
	// wake, and a drain always empties the queue.
	waitCh chan struct{}

	lastTouchNano int64 // atomic via mu; read via IdleSince
}

// NewMailbox returns an empty mailbox bounded at capacity messages.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = 1
	}
	m := &Mailbox{
		capacity: capacity,
		waitCh:   make(chan struct{}, 1),
	}
	m.touch()
	return m
}

func (m *Mailbox) touch() {
	m.lastTouchNano = time.Now().UnixNano()
}

// IdleSince reports how long ago this mailbox was last touched by a Send
// or a drain (Drain/BlockingRecv).
func (m *Mailbox) IdleSince() time.Duration {
	m.mu.Lock()
	last := m.lastTouchNano
	m.mu.Unlock()
	return time.Since(time.Unix(0, last))
}

// Send enqueues msg, dropping the oldest entry on overflow, and wakes at
// most one suspended consumer.
func (m *Mailbox) Send(msg relay.Message) {
	m.mu.Lock()
	if len(m.queue) >= m.capacity {
		// Best-effort semantics: a slow consumer must not wedge producers.
		m.queue = append(m.queue[:0], m.queue[1:]...)
	}
	m.queue = append(m.queue, msg)
	m.touch()
	m.mu.Unlock()

	select {
	case m.waitCh <- struct{}{}:
	default:
	}
}

// Drain removes and returns every currently queued message in FIFO order,
// or nil if the mailbox is empty. Non-blocking.
func (m *Mailbox) Drain() []relay.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	msgs := m.queue
	m.queue = nil
	m.touch()
	return msgs
}

// WaitCh returns the channel a consumer selects on to learn a Send
// happened since the last drain. Firing is edge-triggered, not a message
// count, so callers must Drain after every receive from it.
func (m *Mailbox) WaitCh() <-chan struct{} {
	return m.waitCh
}

// BlockingRecv suspends until the mailbox is non-empty (or ctx ends), then
// drains and returns everything pending. Never returns an empty, non-nil
// slice.
func (m *Mailbox) BlockingRecv(ctx context.Context) ([]relay.Message, error) {
	for {
		if msgs := m.Drain(); msgs != nil {
			return msgs, nil
		}
		select {
		case <-m.waitCh:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len reports the number of currently queued messages. Debug/test use only.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
