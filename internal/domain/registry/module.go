package registry

import "go.uber.org/fx"

// Module provides the mailbox fabric (*Manager) to the fx graph.
var Module = fx.Module("registry",
	fx.Provide(NewManager),
)
