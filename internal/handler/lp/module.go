package lp

import "go.uber.org/fx"

var Module = fx.Module("delivery-lp", fx.Provide(NewLPHandler))
