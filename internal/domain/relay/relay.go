// Package relay defines the wire-independent data model shared by every
// transport (gRPC, WebSocket, long-poll): peer identity, message envelopes,
// and the sentinel errors the service layer returns.
package relay

import "errors"

// ReservedConnIDDiscovery is the conn_id senders use when they don't yet
// know the recipient's current connection id. A peer must never use it as
// its own source and must never call Recv with it.
const ReservedConnIDDiscovery uint32 = 0

// PeerInfo is the immutable identity tuple the relay routes on.
type PeerInfo struct {
	GroupID string
	PeerID  string
	ConnID  uint32
}

// PayloadType tags the opaque application payload carried by a Message.
// The relay only ever inspects PayloadPing, and only produces it.
type PayloadType int32

const (
	PayloadUnspecified PayloadType = iota
	PayloadPing
	PayloadApplication
)

// MessageHeader is opaque routing metadata. Seqnum is never interpreted by
// the relay; it exists for callers to assert ordering in tests.
type MessageHeader struct {
	Src      PeerInfo
	Dst      PeerInfo
	Seqnum   uint32
	Reliable bool
}

// MessagePayload wraps an application-defined payload. Data is nil for
// Ping and for Unspecified.
type MessagePayload struct {
	Type PayloadType
	Data []byte
}

// Message is the unit the relay stores and delivers. Header is absent only
// for relay-originated keep-alive pings.
type Message struct {
	Header  *MessageHeader
	Payload MessagePayload
}

// Sentinel errors the service layer returns; transports translate these to
// their own wire error shapes (gRPC status codes, HTTP status codes, ...).
var (
	ErrInvalidArgument = errors.New("relay: invalid argument")
	ErrNotFound        = errors.New("relay: not found")
	ErrAborted         = errors.New("relay: aborted")
)

// IceServer mirrors the static/dynamic TURN/STUN configuration returned by
// Prepare.
type IceServer struct {
	URLs       []string
	Username   string
	Credential string
}
