package service

import "go.uber.org/fx"

// Module provides the Relayer to the fx graph.
var Module = fx.Module(
	"service",
	fx.Provide(
		fx.Annotate(
			NewRelayService,
			fx.As(new(Relayer)),
		),
	),
)
