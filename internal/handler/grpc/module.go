// internal/handler/grpc/module.go
package grpc

import (
	"go.uber.org/fx"

	grpcsrv "github.com/pulsebeam-relay/signaling-relay/infra/server/grpc"
	"github.com/pulsebeam-relay/signaling-relay/internal/transport/signalingpb"
)

var Module = fx.Module("delivery-grpc",
	fx.Provide(
		NewSignalingService,
	),
	fx.Invoke(RegisterSignalingServices),
)

func RegisterSignalingServices(
	server *grpcsrv.Server,
	service *SignalingService,
) {
	signalingpb.RegisterSignalingServer(server.Server, service)
}
