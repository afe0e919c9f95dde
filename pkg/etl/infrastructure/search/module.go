package search

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// NewSearchIndex provides the loader's SearchIndex, or nil when no endpoint is
// configured. A nil backend turns search_index loads into whole-target
// failures.
func NewSearchIndex(cfg *config.Config) loader.SearchIndex {
	sc := cfg.Undertow.Search
	if sc.Endpoint == "" {
		logger.Infof("no search endpoint configured, search_index targets disabled")
		return nil
	}
	return NewClient(sc)
}

// Module provides the search backend to the fx graph.
var Module = fx.Options(
	fx.Provide(NewSearchIndex),
)
