package advisor

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// NewAdvisor provides the best-effort advisor: backed by the configured chat
// endpoint when enabled, purely neutral otherwise.
func NewAdvisor(cfg *config.Config) Advisor {
	ac := cfg.Undertow.Advisor
	if !ac.Enabled {
		return NewBestEffort(nil)
	}
	llm, err := NewLLMAdvisor(ac)
	if err != nil {
		logger.Warnf("advisor disabled: %v", err)
		return NewBestEffort(nil)
	}
	return NewBestEffort(llm)
}

// Module provides the advisor capability to the fx graph.
var Module = fx.Options(
	fx.Provide(NewAdvisor),
)
