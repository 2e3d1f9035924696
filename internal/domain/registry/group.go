package registry

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// PeerConn identifies one mailbox within a Group: a peer's chosen
// connection id.
type PeerConn struct {
	PeerID string
	ConnID uint32
}

// Group is the peer registry for one room/session namespace. It maps
// peer_id to the set of mailboxes currently held for that peer (one per
// conn_id).
//
// Mailboxes are capped at maxPeers via an LRU: once full, the
// least-recently-looked-up mailbox is evicted to make room (§9 open
// question on eviction order — resolved as LRU, see DESIGN.md).
type Group struct {
	id              string
	mailboxCapacity int

	mailboxes *lru.Cache[PeerConn, *Mailbox]
	sf        singleflight.Group

	lastTouchNano atomic.Int64
}

func newGroup(id string, maxPeers, mailboxCapacity int) *Group {
	if maxPeers <= 0 {
		maxPeers = 1
	}
	cache, _ := lru.New[PeerConn, *Mailbox](maxPeers)
	g := &Group{id: id, mailboxCapacity: mailboxCapacity, mailboxes: cache}
	g.touch()
	return g
}

func (g *Group) touch() {
	g.lastTouchNano.Store(time.Now().UnixNano())
}

// IdleSince reports how long ago this group was last looked up.
func (g *Group) IdleSince() time.Duration {
	return time.Since(time.Unix(0, g.lastTouchNano.Load()))
}

// Get looks up or lazily creates the mailbox for conn within this group.
// Concurrent first-lookups for the same conn are serialized via
// singleflight so exactly one Mailbox gets constructed (the "lazy-create-
// once" contract).
func (g *Group) Get(conn PeerConn) *Mailbox {
	g.touch()
	if mb, ok := g.mailboxes.Get(conn); ok {
		return mb
	}

	key := fmt.Sprintf("%s:%d", conn.PeerID, conn.ConnID)
	v, _, _ := g.sf.Do(key, func() (any, error) {
		if mb, ok := g.mailboxes.Get(conn); ok {
			return mb, nil
		}
		mb := NewMailbox(g.mailboxCapacity)
		g.mailboxes.Add(conn, mb)
		return mb, nil
	})
	return v.(*Mailbox)
}

// SelectOne returns any currently registered connection for peerID, or
// false if none exist. No stability guarantee is given on which one: the
// first responder wins.
func (g *Group) SelectOne(peerID string) (PeerConn, *Mailbox, bool) {
	for _, conn := range g.mailboxes.Keys() {
		if conn.PeerID != peerID {
			continue
		}
		if mb, ok := g.mailboxes.Get(conn); ok {
			return conn, mb, true
		}
	}
	return PeerConn{}, nil, false
}

// Collect enumerates all (peer_id, conn_id) pairs currently live in the
// group.
func (g *Group) Collect() []PeerConn {
	return g.mailboxes.Keys()
}

// Remove drops the mailbox for conn. Idempotent.
func (g *Group) Remove(conn PeerConn) {
	g.mailboxes.Remove(conn)
}

// Len reports the number of live mailboxes in the group.
func (g *Group) Len() int {
	return g.mailboxes.Len()
}

// evictIdle removes any mailbox that has been idle longer than timeout.
// Called from the Manager's janitor goroutine.
func (g *Group) evictIdle(timeout time.Duration) int {
	reaped := 0
	for _, conn := range g.mailboxes.Keys() {
		mb, ok := g.mailboxes.Peek(conn)
		if !ok {
			continue
		}
		if mb.IdleSince() > timeout {
			g.mailboxes.Remove(conn)
			reaped++
		}
	}
	return reaped
}
