// Package grpc adapts service.Relayer onto the hand-written
// signalingpb.SignalingServer contract.
package grpc

import (
	"context"
	"log/slog"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
	"github.com/pulsebeam-relay/signaling-relay/internal/service"
	"github.com/pulsebeam-relay/signaling-relay/internal/transport/signalingpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type SignalingService struct {
	logger  *slog.Logger
	relayer service.Relayer
}

func NewSignalingService(logger *slog.Logger, relayer service.Relayer) *SignalingService {
	return &SignalingService{logger: logger, relayer: relayer}
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case err == relay.ErrInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	case err == relay.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case err == relay.ErrAborted:
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toDomainPeer(p signalingpb.PeerInfo) relay.PeerInfo {
	return relay.PeerInfo{GroupID: p.GroupID, PeerID: p.PeerID, ConnID: p.ConnID}
}

func fromDomainPeer(p relay.PeerInfo) signalingpb.PeerInfo {
	return signalingpb.PeerInfo{GroupID: p.GroupID, PeerID: p.PeerID, ConnID: p.ConnID}
}

func toDomainMsg(m signalingpb.Message) relay.Message {
	var hdr *relay.MessageHeader
	if m.Header != nil {
		hdr = &relay.MessageHeader{
			Src:      toDomainPeer(m.Header.Src),
			Dst:      toDomainPeer(m.Header.Dst),
			Seqnum:   m.Header.Seqnum,
			Reliable: m.Header.Reliable,
		}
	}
	return relay.Message{
		Header: hdr,
		Payload: relay.MessagePayload{
			Type: relay.PayloadType(m.Payload.PayloadType),
			Data: m.Payload.Data,
		},
	}
}

func fromDomainMsg(m relay.Message) signalingpb.Message {
	var hdr *signalingpb.MessageHeader
	if m.Header != nil {
		hdr = &signalingpb.MessageHeader{
			Src:      fromDomainPeer(m.Header.Src),
			Dst:      fromDomainPeer(m.Header.Dst),
			Seqnum:   m.Header.Seqnum,
			Reliable: m.Header.Reliable,
		}
	}
	return signalingpb.Message{
		Header: hdr,
		Payload: signalingpb.MessagePayload{
			PayloadType: signalingpb.PayloadType(m.Payload.Type),
			Data:        m.Payload.Data,
		},
	}
}

// Prepare returns the relay's configured ICE server set. See spec §4.4.3.
func (s *SignalingService) Prepare(ctx context.Context, _ *signalingpb.PrepareReq) (*signalingpb.PrepareResp, error) {
	servers, err := s.relayer.Prepare(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	out := make([]signalingpb.IceServer, len(servers))
	for i, sv := range servers {
		out[i] = signalingpb.IceServer{URLs: sv.URLs, Username: sv.Username, Credential: sv.Credential}
	}
	return &signalingpb.PrepareResp{IceServers: out}, nil
}

// Send routes a single message toward its destination mailbox. See spec §4.4.1.
func (s *SignalingService) Send(ctx context.Context, req *signalingpb.SendReq) (*signalingpb.SendResp, error) {
	if err := s.relayer.Send(ctx, toDomainMsg(req.Msg)); err != nil {
		s.logger.Debug("SEND_REJECTED", slog.Any("err", err))
		return nil, translateErr(err)
	}
	return &signalingpb.SendResp{}, nil
}

// Stream is the streaming recv contract chosen as the primary transport in
// SPEC_FULL.md: one RecvResp per delivered message (or keep-alive ping),
// merged from the subscriber's mailbox wake signal and a periodic ticker.
func (s *SignalingService) Stream(req *signalingpb.RecvReq, stream signalingpb.Signaling_StreamServer) error {
	// [HTTP2_LIFECYCLE]
	// The context is tied to the underlying HTTP/2 stream; a dropped TCP
	// connection or RST_STREAM surfaces as ctx.Done().
	ctx := stream.Context()
	src := toDomainPeer(req.Src)

	l := s.logger.With(
		slog.String("group_id", src.GroupID),
		slog.String("peer_id", src.PeerID),
		slog.Uint64("conn_id", uint64(src.ConnID)),
	)

	sub, err := s.relayer.Subscribe(ctx, src)
	if err != nil {
		l.Debug("SUBSCRIBE_REJECTED", slog.Any("err", err))
		return translateErr(err)
	}
	// [RESOURCE_RECLAMATION]
	// Detaches the mailbox from its group on every return path, including
	// the client-gone case below.
	defer sub.Close()

	l.Debug("STREAM_ESTABLISHED")

	for {
		select {
		case <-ctx.Done():
			l.Debug("STREAM_CLIENT_GONE")
			return nil
		case msg, ok := <-sub.Events():
			if !ok {
				return nil
			}
			pbMsg := fromDomainMsg(msg)
			if err := stream.Send(&signalingpb.RecvResp{Msg: &pbMsg}); err != nil {
				l.Debug("STREAM_SEND_FAILED", slog.Any("err", err))
				return status.Error(codes.DataLoss, "stream_transmission_failed")
			}
		}
	}
}
