// Package ws is the WebSocket transport: bidirectional, carrying both the
// streaming recv path (server -> client) and Send (client -> server) over
// one connection, unlike the unidirectional push the teacher's WS handler
// modeled.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
	"github.com/pulsebeam-relay/signaling-relay/internal/service"
	"github.com/pulsebeam-relay/signaling-relay/internal/transport/signalingpb"
)

type WSHandler struct {
	logger   *slog.Logger
	relayer  service.Relayer
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, relayer service.Relayer) *WSHandler {
	return &WSHandler{
		logger:  logger,
		relayer: relayer,
		upgrader: websocket.Upgrader{
			// Mirrors the HTTP CORS policy: this relay has no same-origin
			// concept, every signaling client is cross-origin by nature.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	src, ok := parsePeer(r)
	if !ok {
		http.Error(w, "invalid group/peer/conn", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS_UPGRADE_FAILED", slog.Any("err", err))
		return
	}
	defer conn.Close()

	sub, err := h.relayer.Subscribe(r.Context(), src)
	if err != nil {
		h.logger.Debug("WS_SUBSCRIBE_REJECTED", slog.Any("err", err))
		return
	}
	defer sub.Close()

	l := h.logger.With(
		slog.String("group_id", src.GroupID),
		slog.String("peer_id", src.PeerID),
		slog.Uint64("conn_id", uint64(src.ConnID)),
	)
	l.Info("WS_OPENED")

	readErrCh := make(chan struct{})
	go h.readPump(r.Context(), conn, l, readErrCh)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-readErrCh:
			return
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(toWireMsg(msg))
			if err != nil {
				l.Error("WS_MARSHAL_FAILED", slog.Any("err", err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.Warn("WS_SEND_FAILED", slog.Any("err", err))
				return
			}
		}
	}
}

// readPump relays client->server Send frames until the socket closes.
func (h *WSHandler) readPump(ctx context.Context, conn *websocket.Conn, l *slog.Logger, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req signalingpb.SendReq
		if err := json.Unmarshal(data, &req); err != nil {
			l.Debug("WS_BAD_FRAME", slog.Any("err", err))
			continue
		}
		if err := h.relayer.Send(ctx, fromWireMsg(req.Msg)); err != nil {
			l.Debug("WS_SEND_REJECTED", slog.Any("err", err))
		}
	}
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
