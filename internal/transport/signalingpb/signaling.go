// Package signalingpb holds the wire message types for the Signaling gRPC
// service described by proto/signaling/v1/signaling.proto.
//
// In the teacher this service's request/response types come from a `gen/go`
// package produced by `buf generate` and never checked into the repo (see
// its own buf/contact_gen.go, a //go:generate wrapper around a package that
// doesn't exist in source form either). We follow the same shape: the
// .proto file is the schema of record, but since running protoc/buf is not
// available in this environment, the Go bindings here are hand-authored
// plain structs rather than protoc-gen-go output. They're carried over
// google.golang.org/grpc using the JSON codec defined in codec.go (and
// registered in infra/server/grpc) instead of the default protobuf wire codec — a deliberate simplification
// of the RPC transport, which spec.md §1 explicitly treats as an external
// collaborator out of this system's scope.
package signalingpb

// PeerInfo is the wire shape of relay.PeerInfo.
type PeerInfo struct {
	GroupID string `json:"group_id"`
	PeerID  string `json:"peer_id"`
	ConnID  uint32 `json:"conn_id"`
}

// MessageHeader is the wire shape of relay.MessageHeader.
type MessageHeader struct {
	Src      PeerInfo `json:"src"`
	Dst      PeerInfo `json:"dst"`
	Seqnum   uint32   `json:"seqnum"`
	Reliable bool     `json:"reliable"`
}

// PayloadType mirrors relay.PayloadType on the wire.
type PayloadType int32

const (
	PayloadUnspecified PayloadType = iota
	PayloadPing
	PayloadApplication
)

// MessagePayload is the wire shape of relay.MessagePayload.
type MessagePayload struct {
	PayloadType PayloadType `json:"payload_type"`
	Data        []byte      `json:"data,omitempty"`
}

// Message is the wire shape of relay.Message. Header is omitted for
// relay-originated keep-alive pings.
type Message struct {
	Header  *MessageHeader `json:"header,omitempty"`
	Payload MessagePayload `json:"payload"`
}

// IceServer mirrors relay.IceServer.
type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type PrepareReq struct{}

type PrepareResp struct {
	IceServers []IceServer `json:"ice_servers"`
}

type SendReq struct {
	Msg Message `json:"msg"`
}

type SendResp struct{}

type RecvReq struct {
	Src PeerInfo `json:"src"`
}

// RecvResp is one item of the Stream server-streaming response, or (in the
// long-poll transport) the single batched response carrying Msgs instead.
type RecvResp struct {
	Msg  *Message  `json:"msg,omitempty"`
	Msgs []Message `json:"msgs,omitempty"`
}
