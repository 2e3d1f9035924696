// Package lp is the long-poll HTTP transport: an alternate recv path over
// the same payload mailbox the streaming gRPC transport uses, per
// SPEC_FULL.md's architectural decision. It never merges a keep-alive
// ping; an empty 200 response after the poll ceiling IS this transport's
// keep-alive signal.
package lp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
	"github.com/pulsebeam-relay/signaling-relay/internal/service"
	"github.com/pulsebeam-relay/signaling-relay/internal/transport/signalingpb"
)

type LPHandler struct {
	logger  *slog.Logger
	relayer service.Relayer
}

func NewLPHandler(logger *slog.Logger, relayer service.Relayer) *LPHandler {
	return &LPHandler{logger: logger, relayer: relayer}
}

// Poll handles GET /lp/{group}/{peer}/{conn}. It holds the request open
// until at least one message arrives, the poll ceiling elapses, or the
// client disconnects.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	src, ok := parsePeer(r)
	if !ok {
		http.Error(w, "invalid group/peer/conn", http.StatusBadRequest)
		return
	}

	msgs, err := h.relayer.RecvBatch(r.Context(), src)
	if err != nil {
		h.logger.Debug("LP_POLL_REJECTED", slog.Any("err", err))
		http.Error(w, "poll failed", http.StatusBadRequest)
		return
	}

	out := make([]signalingpb.Message, len(msgs))
	for i, m := range msgs {
		out[i] = toWireMsg(m)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(signalingpb.RecvResp{Msgs: out})
}

// Send handles POST /lp/{group}/{peer}/{conn}/send: a single message
// enqueued toward its destination mailbox.
func (h *LPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req signalingpb.SendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.relayer.Send(r.Context(), fromWireMsg(req.Msg)); err != nil {
		h.logger.Debug("LP_SEND_REJECTED", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parsePeer(r *http.Request) (relay.PeerInfo, bool) {
	groupID := chi.URLParam(r, "group")
	peerID := chi.URLParam(r, "peer")
	connStr := chi.URLParam(r, "conn")
	if groupID == "" || peerID == "" {
		return relay.PeerInfo{}, false
	}
	connID, err := strconv.ParseUint(connStr, 10, 32)
	if err != nil {
		return relay.PeerInfo{}, false
	}
	return relay.PeerInfo{GroupID: groupID, PeerID: peerID, ConnID: uint32(connID)}, true
}

func toWireMsg(m relay.Message) signalingpb.Message {
	var hdr *signalingpb.MessageHeader
	if m.Header != nil {
		hdr = &signalingpb.MessageHeader{
			Src:      signalingpb.PeerInfo{GroupID: m.Header.Src.GroupID, PeerID: m.Header.Src.PeerID, ConnID: m.Header.Src.ConnID},
			Dst:      signalingpb.PeerInfo{GroupID: m.Header.Dst.GroupID, PeerID: m.Header.Dst.PeerID, ConnID: m.Header.Dst.ConnID},
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

func fromWireMsg(m signalingpb.Message) relay.Message {
	var hdr *relay.MessageHeader
	if m.Header != nil {
		hdr = &relay.MessageHeader{
			Src:      relay.PeerInfo{GroupID: m.Header.Src.GroupID, PeerID: m.Header.Src.PeerID, ConnID: m.Header.Src.ConnID},
			Dst:      relay.PeerInfo{GroupID: m.Header.Dst.GroupID, PeerID: m.Header.Dst.PeerID, ConnID: m.Header.Dst.ConnID},
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
