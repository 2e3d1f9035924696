package registry

import (
	"context"
	"testing"
	"time"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
)

func appMsg(seqnum uint32) relay.Message {
	return relay.Message{
		Header:  &relay.MessageHeader{Seqnum: seqnum},
		Payload: relay.MessagePayload{Type: relay.PayloadApplication},
	}
}

func TestMailboxDrainIsFIFO(t *testing.T) {
	mb := NewMailbox(4)
	mb.Send(appMsg(1))
	mb.Send(appMsg(2))
	mb.Send(appMsg(3))

	got := mb.Drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, msg := range got {
		if msg.Header.Seqnum != uint32(i+1) {
			t.Fatalf("out of order: want seq %d, got %d", i+1, msg.Header.Seqnum)
		}
	}

	if got := mb.Drain(); got != nil {
		t.Fatalf("expected nil after drain, got %v", got)
	}
}

func TestMailboxOverflowDropsOldest(t *testing.T) {
	mb := NewMailbox(2)
	mb.Send(appMsg(1))
	mb.Send(appMsg(2))
	mb.Send(appMsg(3)) // should evict seq 1

	got := mb.Drain()
	if len(got) != 2 {
		t.Fatalf("expected capacity-bounded drain of 2, got %d", len(got))
	}
	if got[0].Header.Seqnum != 2 || got[1].Header.Seqnum != 3 {
		t.Fatalf("expected oldest dropped, got seqnums %d,%d", got[0].Header.Seqnum, got[1].Header.Seqnum)
	}
}

func TestMailboxBlockingRecvWakesOnSend(t *testing.T) {
	mb := NewMailbox(4)
	done := make(chan []relay.Message, 1)

	go func() {
		msgs, err := mb.BlockingRecv(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- msgs
	}()

	time.Sleep(10 * time.Millisecond)
	mb.Send(appMsg(1))

	select {
	case msgs := <-done:
		if len(msgs) != 1 {
			t.Fatalf("expected 1 message, got %d", len(msgs))
		}
	case <-time.After(time.Second):
		t.Fatal("BlockingRecv did not wake up on Send")
	}
}

func TestMailboxBlockingRecvRespectsContext(t *testing.T) {
	mb := NewMailbox(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mb.BlockingRecv(ctx)
	if err == nil {
		t.Fatal("expected context deadline error, got nil")
	}
}

func TestMailboxCoalescedWakeDoesNotLoseMessages(t *testing.T) {
	mb := NewMailbox(8)
	for i := uint32(1); i <= 5; i++ {
		mb.Send(appMsg(i))
	}

	msgs, err := mb.BlockingRecv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected all 5 coalesced messages in one drain, got %d", len(msgs))
	}
}

func TestMailboxIdleSinceAdvances(t *testing.T) {
	mb := NewMailbox(1)
	time.Sleep(5 * time.Millisecond)
	if mb.IdleSince() <= 0 {
		t.Fatal("expected IdleSince to report a positive duration")
	}
	mb.Send(appMsg(1))
	if mb.IdleSince() > 5*time.Millisecond {
		t.Fatal("expected Send to reset idle timer")
	}
}
