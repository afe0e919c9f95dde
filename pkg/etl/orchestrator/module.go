package orchestrator

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
	registry "github.com/tigerroll/undertow/pkg/etl/core/registry"
	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
)

// Params collects the orchestrator's collaborators from the fx graph.
type Params struct {
	fx.In

	Repository repo.JobRepository
	Registry   *registry.Registry
	Publisher  event.Publisher
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	Config     *config.Config
}

// New provides the orchestrator.
func New(p Params) *Orchestrator {
	return NewOrchestrator(p.Repository, p.Registry, p.Publisher, p.Recorder, p.Tracer,
		p.Config.Undertow.Engine)
}

// Module provides the orchestrator to the fx graph.
var Module = fx.Options(
	fx.Provide(New),
)
