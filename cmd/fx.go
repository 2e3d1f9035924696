package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pulsebeam-relay/signaling-relay/internal/config"
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
	"github.com/pulsebeam-relay/signaling-relay/internal/service"

	grpcsrv "github.com/pulsebeam-relay/signaling-relay/infra/server/grpc"
	httpsrv "github.com/pulsebeam-relay/signaling-relay/infra/server/http"
	"github.com/pulsebeam-relay/signaling-relay/infra/turn"
	grpchandler "github.com/pulsebeam-relay/signaling-relay/internal/handler/grpc"
	lphandler "github.com/pulsebeam-relay/signaling-relay/internal/handler/lp"
	wshandler "github.com/pulsebeam-relay/signaling-relay/internal/handler/ws"
)

// RunOptions carries the values the "server" CLI command resolved from
// flags/env, bundled into one struct so fx doesn't have to disambiguate
// between two independently-provided bare strings.
type RunOptions struct {
	ConfigFile string
	LogFile    string
}

// fanoutHandler forwards every record to both an operator-facing handler
// (JSON on stdout, optionally mirrored to a file) and an OTel log bridge
// handler, so records carry trace/span IDs once a LoggerProvider exporter
// is configured while still being readable without one.
type fanoutHandler struct {
	primary, bridge slog.Handler
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level)
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.primary.Handle(ctx, r.Clone()); err != nil {
		return err
	}
	return h.bridge.Handle(ctx, r.Clone())
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{primary: h.primary.WithAttrs(attrs), bridge: h.bridge.WithAttrs(attrs)}
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{primary: h.primary.WithGroup(name), bridge: h.bridge.WithGroup(name)}
}

// ProvideLogger builds the relay's structured logger. Operator-facing
// output is always JSON on stdout; when LogFile is set it's also mirrored
// to a lumberjack-rotated file, matching the teacher's pattern of treating
// stdout logging and file logging as independent sinks. Every record is
// additionally bridged into the OTel Logs API via otelslog, so records
// pick up trace/span IDs for free once a collector exporter is attached
// to the LoggerProvider; without one attached the bridge is a harmless
// no-op sink.
func ProvideLogger(opts RunOptions) *slog.Logger {
	out := io.Writer(os.Stdout)
	if opts.LogFile != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	provider := sdklog.NewLoggerProvider()
	bridge := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))

	logger := slog.New(fanoutHandler{
		primary: slog.NewJSONHandler(out, nil),
		bridge:  bridge,
	})
	slog.SetDefault(logger)
	return logger
}

// fxLogger adapts *slog.Logger to fx's event logger so framework-level
// lifecycle events (hook start/stop, provide errors) land in the same
// structured stream as the rest of the relay's logs.
func fxLogger(logger *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: logger}
}

// watchConfig hooks config.WatchRegistry into the app's lifecycle, hot-
// swapping the mailbox fabric's tunables whenever opts.ConfigFile changes
// on disk.
func watchConfig(lc fx.Lifecycle, opts RunOptions, manager *registry.Manager, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return config.WatchRegistry(opts.ConfigFile, logger, manager.UpdateConfig)
		},
	})
}

// NewApp wires the complete relay: mailbox fabric, relay service, and the
// three transports (gRPC streaming, long-poll, WebSocket) sharing it.
func NewApp(cfg *config.Config, opts RunOptions) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			func() RunOptions { return opts },
			ProvideLogger,
		),
		fx.WithLogger(fxLogger),

		config.Module,
		registry.Module,
		turn.Module,
		service.Module,

		grpchandler.Module,
		grpcsrv.Module,
		lphandler.Module,
		wshandler.Module,
		httpsrv.Module,

		fx.Invoke(watchConfig),
	)
}
