package kg

import (
	"go.uber.org/fx"

	advisor "github.com/tigerroll/undertow/pkg/etl/advisor"
	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	registry "github.com/tigerroll/undertow/pkg/etl/core/registry"
	par "github.com/tigerroll/undertow/pkg/etl/engine/par"
	reflection "github.com/tigerroll/undertow/pkg/etl/engine/reflection"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	tabular "github.com/tigerroll/undertow/pkg/etl/workers/tabular"
)

// NewFactory builds the kg_build worker factory. graph may be nil; executing a
// kg_build job then fails at perceive time.
func NewFactory(fetcher *tabular.SourceFetcher, graph GraphService, knowledge repo.KnowledgeStore, policy reflection.Policy, adv advisor.Advisor) registry.WorkerFactory {
	return func(def model.JobDefinition, p par.EngineParams) (par.Executor, error) {
		w := NewWorker(def, fetcher, graph, knowledge, policy, adv)
		return par.NewEngine[*loader.Dataset, Adjustment](w, p), nil
	}
}

// RegisterParams collects the registration inputs.
type RegisterParams struct {
	fx.In

	Registry   *registry.Registry
	Repository repo.JobRepository
	Advisor    advisor.Advisor
	Config     *config.Config
	Graph      GraphService `optional:"true"`
}

// Register binds the kg_build job type.
func Register(p RegisterParams) {
	ec := p.Config.Undertow.Engine
	policy := reflection.NewPolicy(ec.SuccessThreshold, ec.RetryThreshold)
	p.Registry.Register(model.JobTypeKGBuild,
		NewFactory(tabular.NewSourceFetcher(), p.Graph, p.Repository, policy, p.Advisor))
}

// Module registers the kg_build worker at process start.
var Module = fx.Options(
	fx.Invoke(Register),
)
