package signalingpb

import "encoding/json"

// Codec is a grpc/encoding.Codec implementation using plain JSON instead
// of protobuf wire encoding. It is registered under the name "proto" in
// infra/server/grpc, which overrides grpc-go's built-in protobuf codec for
// every call that doesn't explicitly request another content-subtype —
// i.e. every ordinary gRPC client, since "proto" is what an unqualified
// "application/grpc" content-type resolves to.
//
// This only works because our message types (signaling.go) are plain structs,
// not protoreflect-backed generated messages; see the package doc for why.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string { return "proto" }
