// Package grpc hosts the *grpc.Server bootstrap: listener, interceptor
// chain, and lifecycle wiring into fx. internal/handler/grpc registers the
// actual Signaling service against the *Server this package builds.
package grpc

import (
	"context"
	"log/slog"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/pulsebeam-relay/signaling-relay/internal/config"
	"github.com/pulsebeam-relay/signaling-relay/internal/transport/signalingpb"
)

// Server wraps a *grpc.Server bound to its own listener, so handler
// packages can register services before Start is invoked by fx.
type Server struct {
	Server   *grpc.Server
	listener net.Listener
	logger   *slog.Logger
}

func NewServer(logger *slog.Logger, cfg *config.Config) (*Server, error) {
	// [CODEC_OVERRIDE]
	// Registering under "proto" replaces grpc-go's built-in protobuf codec
	// for any call that doesn't request a different content-subtype — see
	// signalingpb's package doc for why this relay carries JSON instead of
	// real protobuf wire encoding.
	encoding.RegisterCodec(signalingpb.Codec{})

	lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(),
			logging.UnaryServerInterceptor(interceptorLogger(logger)),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(),
			logging.StreamServerInterceptor(interceptorLogger(logger)),
		),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)

	return &Server{Server: srv, listener: lis, logger: logger}, nil
}

func interceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func (s *Server) start(context.Context) error {
	s.logger.Info("GRPC_LISTENING", slog.String("addr", s.listener.Addr().String()))
	go func() {
		if err := s.Server.Serve(s.listener); err != nil {
			s.logger.Error("GRPC_SERVE_FAILED", slog.Any("err", err))
		}
	}()
	return nil
}

func (s *Server) stop(context.Context) error {
	s.Server.GracefulStop()
	return nil
}

// Module provides the *Server and hooks its lifecycle into fx.
var Module = fx.Module("infra-grpc",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{OnStart: s.start, OnStop: s.stop})
	}),
)
