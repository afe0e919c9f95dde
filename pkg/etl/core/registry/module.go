package registry

import (
	"go.uber.org/fx"
)

// Module provides the worker registry to the fx graph.
var Module = fx.Options(
	fx.Provide(NewRegistry),
)
