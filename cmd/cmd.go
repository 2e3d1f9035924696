package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/pulsebeam-relay/signaling-relay/internal/config"
)

const (
	ServiceName      = "signaling-relay"
	ServiceNamespace = "pulsebeam"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "WebRTC signaling relay",
		Commands: []*cli.Command{
			serverCmd(),
			monitorCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the signaling relay",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config_file", Usage: "Path to the configuration file"},
			&cli.StringFlag{Name: "log_file", Usage: "Optional path to also mirror logs into (rotated via lumberjack)"},
			&cli.StringFlag{Name: "grpc_listen_addr", Usage: "Override the gRPC listen address"},
			&cli.StringFlag{Name: "http_listen_addr", Usage: "Override the HTTP (long-poll/WS/debug) listen address"},
		},
		Action: func(c *cli.Context) error {
			// Set marks each flag as changed, which is what makes viper rank
			// it above the config file, env and defaults.
			flags := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
			if v := c.String("grpc_listen_addr"); v != "" {
				flags.String("grpc_listen_addr", v, "")
				_ = flags.Set("grpc_listen_addr", v)
			}
			if v := c.String("http_listen_addr"); v != "" {
				flags.String("http_listen_addr", v, "")
				_ = flags.Set("http_listen_addr", v)
			}

			cfg, err := config.Load(c.String("config_file"), flags)
			if err != nil {
				return err
			}

			opts := RunOptions{ConfigFile: c.String("config_file"), LogFile: c.String("log_file")}
			app := NewApp(cfg, opts)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}
