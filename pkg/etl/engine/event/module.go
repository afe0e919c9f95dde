package event

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the shared event bus.
var Module = fx.Options(
	fx.Provide(NewBus),
	fx.Provide(func(b *Bus) Publisher { return b }),
)
