// Package service hosts the relay's transport-agnostic business logic:
// Send, Subscribe (the streaming recv contract), RecvBatch (the long-poll
// recv contract), and Prepare. No transport package (gRPC/WS/HTTP) is
// imported here, mirroring the teacher's internal/service layer staying
// free of internal/handler imports.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
)

// Relayer is the contract every transport handler drives.
type Relayer interface {
	Send(ctx context.Context, msg relay.Message) error
	Subscribe(ctx context.Context, src relay.PeerInfo) (*Subscription, error)
	RecvBatch(ctx context.Context, src relay.PeerInfo) ([]relay.Message, error)
	Prepare(ctx context.Context) ([]relay.IceServer, error)
}

// IceServerSource supplies the ICE server list Prepare returns. The static
// implementation just returns a fixed slice; infra/turn wraps a dynamic
// TURN credential fetch behind a circuit breaker.
type IceServerSource interface {
	IceServers(ctx context.Context) ([]relay.IceServer, error)
}

// staticIceServers is the fallback source: a public STUN-only list,
// matching the original signaling server's default (operators are expected
// to override this with their own TURN/STUN infrastructure).
type staticIceServers struct{ servers []relay.IceServer }

func (s staticIceServers) IceServers(context.Context) ([]relay.IceServer, error) {
	return s.servers, nil
}

// DefaultIceServers returns the relay's built-in fallback: a single public
// STUN server, no TURN credentials.
func DefaultIceServers() IceServerSource {
	return staticIceServers{servers: []relay.IceServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
	}}
}

// RelayService implements Relayer over a *registry.Manager.
type RelayService struct {
	manager *registry.Manager
	ice     IceServerSource
}

// NewRelayService wires the service to its mailbox fabric and ICE server
// source. Tunables (keep-alive interval, poll/batch timeouts) are read
// live from manager on every call, so config.WatchRegistry's hot-reload
// takes effect without restarting in-flight subscriptions' next tick.
func NewRelayService(manager *registry.Manager, ice IceServerSource) *RelayService {
	if ice == nil {
		ice = DefaultIceServers()
	}
	return &RelayService{manager: manager, ice: ice}
}

// Send validates and routes msg to its destination mailbox. See spec
// §4.4.1: a dst.ConnID of relay.ReservedConnIDDiscovery is resolved via
// Group.SelectOne and the header is rewritten in place before enqueue.
func (s *RelayService) Send(ctx context.Context, msg relay.Message) error {
	if msg.Header == nil {
		return relay.ErrInvalidArgument
	}
	dst := msg.Header.Dst
	if dst.GroupID == "" || dst.PeerID == "" {
		return relay.ErrInvalidArgument
	}

	group := s.manager.Get(dst.GroupID)

	if dst.ConnID == relay.ReservedConnIDDiscovery {
		conn, mb, ok := group.SelectOne(dst.PeerID)
		if !ok {
			return relay.ErrNotFound
		}
		// Rewrite the header in place: the recipient sees its own real
		// conn_id, not the discovery address the sender used.
		msg.Header.Dst.ConnID = conn.ConnID
		mb.Send(msg)
		return nil
	}

	mb := group.Get(registry.PeerConn{PeerID: dst.PeerID, ConnID: dst.ConnID})
	mb.Send(msg)
	return nil
}

// Subscription is a live recv stream: the merge of one payload mailbox and
// a periodic keep-alive ping, per the streaming variant chosen in
// SPEC_FULL.md. Exactly one cleanup (removing the peer from its group)
// fires, whether triggered by Close or by the consumer draining Events()
// to closure.
type Subscription struct {
	events  chan relay.Message
	cancel  context.CancelFunc
	once    sync.Once
	manager *registry.Manager
	src     relay.PeerInfo
}

// Events returns the channel of delivered messages, including synthetic
// keep-alive pings (absent Header, PayloadPing). The channel closes when
// the subscription is Closed or its context ends.
func (sub *Subscription) Events() <-chan relay.Message { return sub.events }

// Close tears down the subscription and removes its mailbox from the
// group. Safe to call more than once and safe to call concurrently with
// the context ending on its own.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.cancel()
		sub.manager.Remove(sub.src)
	})
}

// Subscribe opens a streaming recv for src. Validate: src.ConnID must not
// be the reserved discovery address (spec §4.4.2).
func (s *RelayService) Subscribe(ctx context.Context, src relay.PeerInfo) (*Subscription, error) {
	if src.ConnID == relay.ReservedConnIDDiscovery {
		return nil, relay.ErrInvalidArgument
	}

	group := s.manager.Get(src.GroupID)
	mb := group.Get(registry.PeerConn{PeerID: src.PeerID, ConnID: src.ConnID})

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events:  make(chan relay.Message),
		cancel:  cancel,
		manager: s.manager,
		src:     src,
	}

	go func() {
		s.pump(subCtx, mb, sub.events)
		sub.Close()
	}()
	return sub, nil
}

// pump is the merge loop: payload mailbox wakes and keep-alive ticks feed
// the same output channel. No cross-mailbox ordering is promised; ticks
// may interleave anywhere.
func (s *RelayService) pump(ctx context.Context, mb *registry.Mailbox, out chan<- relay.Message) {
	defer close(out)

	interval := s.manager.Config().KeepAliveInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ping := relay.Message{Payload: relay.MessagePayload{Type: relay.PayloadPing}}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case out <- ping:
			case <-ctx.Done():
				return
			}
			if d := s.manager.Config().KeepAliveInterval; d > 0 && d != interval {
				interval = d
				ticker.Reset(d)
			}
		case <-mb.WaitCh():
			for _, msg := range mb.Drain() {
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// RecvBatch implements the long-poll recv contract: block for the first
// batch (bounded by SessionPollTimeout-SessionPollLatencyTolerance), then
// coalesce additional bursts for up to SessionBatchTimeout before
// returning. Unlike Subscribe, this never merges a keep-alive source; an
// empty return after the ceiling IS the long-poll's keep-alive signal to
// the client (it should immediately re-poll).
func (s *RelayService) RecvBatch(ctx context.Context, src relay.PeerInfo) ([]relay.Message, error) {
	if src.ConnID == relay.ReservedConnIDDiscovery {
		return nil, relay.ErrInvalidArgument
	}

	group := s.manager.Get(src.GroupID)
	mb := group.Get(registry.PeerConn{PeerID: src.PeerID, ConnID: src.ConnID})

	cfg := s.manager.Config()
	ceiling := cfg.SessionPollTimeout - cfg.SessionPollLatency
	ctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	first, err := mb.BlockingRecv(ctx)
	if err != nil {
		// Ceiling hit or client disconnected: return empty, not an error.
		// The client's next poll re-touches the mailbox before it idles
		// out, per the latency-tolerance rationale in spec §5.
		return nil, nil
	}

	out := first
	for {
		cctx, cancel := context.WithTimeout(ctx, cfg.SessionBatchTimeout)
		more, err := mb.BlockingRecv(cctx)
		cancel()
		if err != nil {
			return out, nil
		}
		out = append(out, more...)
	}
}

// Prepare returns the configured ICE server list. No state is read or
// written.
func (s *RelayService) Prepare(ctx context.Context) ([]relay.IceServer, error) {
	return s.ice.IceServers(ctx)
}
