package registry

import (
	"testing"
	"time"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
)

func testConfig() Config {
	return NewConfig(
		WithMaxGroups(4),
		WithMaxPeersPerGroup(4),
		WithMailboxCapacity(4),
		WithSessionPollTimeout(50*time.Millisecond),
		WithSessionPollLatencyTolerance(5*time.Millisecond),
		WithSessionBatchTimeout(5*time.Millisecond),
		WithKeepAliveInterval(time.Second),
	)
}

func TestManagerGetLazyCreatesGroup(t *testing.T) {
	m := NewManager(testConfig(), nil)
	defer m.Shutdown()

	g1 := m.Get("room-1")
	g2 := m.Get("room-1")
	if g1 != g2 {
		t.Fatal("expected the same group instance on repeated Get")
	}
	if m.GroupCount() != 1 {
		t.Fatalf("expected 1 group, got %d", m.GroupCount())
	}
}

func TestManagerRemoveDropsEmptyGroup(t *testing.T) {
	m := NewManager(testConfig(), nil)
	defer m.Shutdown()

	peer := relay.PeerInfo{GroupID: "room-1", PeerID: "alice", ConnID: 1}
	g := m.Get(peer.GroupID)
	g.Get(PeerConn{PeerID: peer.PeerID, ConnID: peer.ConnID})

	m.Remove(peer)

	if _, ok := m.Peek("room-1"); ok {
		t.Fatal("expected the group to be dropped once its last mailbox was removed")
	}
}

func TestManagerInvalidateAllIsLiveAfterward(t *testing.T) {
	m := NewManager(testConfig(), nil)
	defer m.Shutdown()

	m.Get("room-1")
	m.InvalidateAll()
	if m.GroupCount() != 0 {
		t.Fatalf("expected 0 groups after InvalidateAll, got %d", m.GroupCount())
	}

	// The fabric must stay usable immediately afterward.
	g := m.Get("room-1")
	mb := g.Get(PeerConn{PeerID: "alice", ConnID: 1})
	mb.Send(appMsg(1))
	if mb.Len() != 1 {
		t.Fatal("expected mailbox fabric to be fully usable right after InvalidateAll")
	}
}

func TestManagerIdleEvictionSweepsMailboxesAndGroups(t *testing.T) {
	cfg := testConfig()
	cfg.EvictionSweepInterval = 10 * time.Millisecond
	m := NewManager(cfg, nil)
	defer m.Shutdown()

	g := m.Get("room-1")
	g.Get(PeerConn{PeerID: "alice", ConnID: 1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Peek("room-1"); !ok {
			return // group was reclaimed: success
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected idle group/mailbox to be reclaimed by the janitor")
}

func TestManagerUpdateConfigAffectsNewGroupsOnly(t *testing.T) {
	m := NewManager(testConfig(), nil)
	defer m.Shutdown()

	m.UpdateConfig(Config{
		MaxPeersPerGroup:    1,
		MailboxCapacity:     1,
		SessionPollTimeout:  time.Minute,
		SessionPollLatency:  time.Second,
		SessionBatchTimeout: time.Millisecond,
		KeepAliveInterval:   time.Minute,
	})

	if got := m.Config().MaxPeersPerGroup; got != 1 {
		t.Fatalf("expected UpdateConfig to take effect, got MaxPeersPerGroup=%d", got)
	}

	g := m.Get("room-new")
	g.Get(PeerConn{PeerID: "a", ConnID: 1})
	g.Get(PeerConn{PeerID: "b", ConnID: 1}) // should evict "a": MaxPeersPerGroup now 1
	if g.Len() != 1 {
		t.Fatalf("expected new group to honor updated MaxPeersPerGroup, got %d mailboxes", g.Len())
	}
}
