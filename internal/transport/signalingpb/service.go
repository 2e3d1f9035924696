package signalingpb

import (
	"context"

	"google.golang.org/grpc"
)

// SignalingServer is the interface internal/handler/grpc implements. Its
// shape mirrors what protoc-gen-go-grpc would emit for
// proto/signaling/v1/signaling.proto's Signaling service.
type SignalingServer interface {
	Prepare(context.Context, *PrepareReq) (*PrepareResp, error)
	Send(context.Context, *SendReq) (*SendResp, error)
	Stream(*RecvReq, Signaling_StreamServer) error
}

// Signaling_StreamServer is the server-side handle for the Stream RPC's
// send half.
type Signaling_StreamServer interface {
	Send(*RecvResp) error
	grpc.ServerStream
}

type signalingStreamServer struct {
	grpc.ServerStream
}

func (s *signalingStreamServer) Send(m *RecvResp) error {
	return s.ServerStream.SendMsg(m)
}

func _Signaling_Prepare_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PrepareReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignalingServer).Prepare(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/signaling.v1.Signaling/Prepare"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignalingServer).Prepare(ctx, req.(*PrepareReq))
	}
	return interceptor(ctx, in, info, handler)
}

func _Signaling_Send_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignalingServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/signaling.v1.Signaling/Send"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignalingServer).Send(ctx, req.(*SendReq))
	}
	return interceptor(ctx, in, info, handler)
}

func _Signaling_Stream_Handler(srv any, stream grpc.ServerStream) error {
	m := new(RecvReq)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SignalingServer).Stream(m, &signalingStreamServer{stream})
}

// ServiceDesc is registered against a *grpc.Server the same way
// protoc-gen-go-grpc's generated _ServiceDesc would be.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "signaling.v1.Signaling",
	HandlerType: (*SignalingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Prepare", Handler: _Signaling_Prepare_Handler},
		{MethodName: "Send", Handler: _Signaling_Send_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Stream", Handler: _Signaling_Stream_Handler, ServerStreams: true},
	},
	Metadata: "signaling/v1/signaling.proto",
}

// RegisterSignalingServer registers srv against s.
func RegisterSignalingServer(s *grpc.Server, srv SignalingServer) {
	s.RegisterService(&ServiceDesc, srv)
}
