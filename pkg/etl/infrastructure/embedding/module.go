package embedding

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// NewEmbedder provides the loader's Embedder: the OpenAI-compatible client
// when a host is configured, otherwise the deterministic fallback.
func NewEmbedder(cfg *config.Config) (loader.Embedder, error) {
	ec := cfg.Undertow.Embedding
	if ec.Host == "" {
		logger.Infof("no embedding host configured, using deterministic embedder (dimension %d)", ec.Dimension)
		return NewDeterministicEmbedder(ec.Dimension), nil
	}
	return NewOpenAIEmbedder(ec)
}

// Module provides the embedding capability to the fx graph.
var Module = fx.Options(
	fx.Provide(NewEmbedder),
)
