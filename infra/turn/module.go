package turn

import (
	"go.uber.org/fx"

	"github.com/pulsebeam-relay/signaling-relay/internal/config"
	"github.com/pulsebeam-relay/signaling-relay/internal/service"
)

var Module = fx.Module("infra-turn",
	fx.Provide(
		func(cfg *config.Config) config.TURNConfig { return cfg.TURN },
		fx.Annotate(NewProvider, fx.As(new(service.IceServerSource))),
	),
)
