package config

import (
	"go.uber.org/fx"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
)

// Module exposes the loaded *Config and its registry.Config projection to
// the fx graph. The *Config value itself must be supplied by the caller
// (cmd/fx.go) since loading it requires the CLI's config-file flag.
var Module = fx.Module("config",
	fx.Provide(
		func(cfg *Config) registry.Config { return cfg.Registry },
	),
)
