package config

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the application configuration.
// EmbeddedConfig is expected to be supplied by the application entrypoint.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
)
