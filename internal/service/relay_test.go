package service

import (
	"context"
	"testing"
	"time"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
)

func testManager(t *testing.T) *registry.Manager {
	t.Helper()
	cfg := registry.NewConfig(
		registry.WithMaxGroups(8),
		registry.WithMaxPeersPerGroup(8),
		registry.WithMailboxCapacity(8),
		registry.WithSessionPollTimeout(200*time.Millisecond),
		registry.WithSessionPollLatencyTolerance(20*time.Millisecond),
		registry.WithSessionBatchTimeout(10*time.Millisecond),
		registry.WithKeepAliveInterval(2*time.Second),
	)
	m := registry.NewManager(cfg, nil)
	t.Cleanup(m.Shutdown)
	return m
}

func appMessage(dst relay.PeerInfo) relay.Message {
	return relay.Message{
		Header:  &relay.MessageHeader{Dst: dst},
		Payload: relay.MessagePayload{Type: relay.PayloadApplication, Data: []byte("sdp")},
	}
}

func TestSendDirectDelivery(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	dst := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: 1}
	// Pre-create bob's mailbox by having him "connect" first.
	m.Get(dst.GroupID).Get(registry.PeerConn{PeerID: dst.PeerID, ConnID: dst.ConnID})

	if err := svc.Send(context.Background(), appMessage(dst)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mb := m.Get(dst.GroupID).Get(registry.PeerConn{PeerID: dst.PeerID, ConnID: dst.ConnID})
	if mb.Len() != 1 {
		t.Fatalf("expected 1 queued message, got %d", mb.Len())
	}
}

func TestSendDiscoveryAddressRewritesHeader(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	real := registry.PeerConn{PeerID: "bob", ConnID: 7}
	m.Get("room-1").Get(real)

	dst := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: relay.ReservedConnIDDiscovery}
	msg := appMessage(dst)
	if err := svc.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mb := m.Get("room-1").Get(real)
	got := mb.Drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(got))
	}
	if got[0].Header.Dst.ConnID != real.ConnID {
		t.Fatalf("expected header rewritten to real conn_id %d, got %d", real.ConnID, got[0].Header.Dst.ConnID)
	}
}

func TestSendUnknownPeerReturnsNotFound(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	dst := relay.PeerInfo{GroupID: "room-1", PeerID: "ghost", ConnID: relay.ReservedConnIDDiscovery}
	err := svc.Send(context.Background(), appMessage(dst))
	if err != relay.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendRejectsMissingHeader(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	err := svc.Send(context.Background(), relay.Message{})
	if err != relay.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubscribeRejectsDiscoveryAddress(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	src := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: relay.ReservedConnIDDiscovery}
	_, err := svc.Subscribe(context.Background(), src)
	if err != relay.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubscribeDeliversSentMessage(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	src := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: 1}
	sub, err := svc.Subscribe(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Close()

	if err := svc.Send(context.Background(), appMessage(src)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-sub.Events():
		if msg.Payload.Type != relay.PayloadApplication {
			t.Fatalf("expected application payload, got %v", msg.Payload.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("subscription did not receive the sent message")
	}
}

func TestSubscribeCloseRemovesMailbox(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	src := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: 1}
	sub, err := svc.Subscribe(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub.Close()

	g, ok := m.Peek("room-1")
	if ok && g.Len() != 0 {
		t.Fatal("expected Close to remove the peer's mailbox from its group")
	}
}

func TestRecvBatchCoalescesBurst(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	src := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: 1}
	mb := m.Get(src.GroupID).Get(registry.PeerConn{PeerID: src.PeerID, ConnID: src.ConnID})
	mb.Send(appMessage(src))
	mb.Send(appMessage(src))

	msgs, err := svc.RecvBatch(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 coalesced messages, got %d", len(msgs))
	}
}

func TestRecvBatchTimesOutWithoutError(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	src := relay.PeerInfo{GroupID: "room-1", PeerID: "bob", ConnID: 1}
	msgs, err := svc.RecvBatch(context.Background(), src)
	if err != nil {
		t.Fatalf("expected nil error on poll ceiling, got %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected no messages, got %v", msgs)
	}
}

func TestPrepareReturnsDefaultIceServers(t *testing.T) {
	m := testManager(t)
	svc := NewRelayService(m, nil)

	servers, err := svc.Prepare(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(servers) != 1 || servers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Fatalf("expected the built-in STUN fallback, got %+v", servers)
	}
}
