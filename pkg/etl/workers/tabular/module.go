package tabular

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
)

// NewFactory builds the worker factory shared by every tabular job type.
func NewFactory(fetcher *SourceFetcher, load *loader.MultiTargetLoader, knowledge repo.KnowledgeStore, policy reflection.Policy, adv advisor.Advisor) registry.WorkerFactory {
	return func(def model.JobDefinition, p par.EngineParams) (par.Executor, error) {
		w := NewWorker(def, fetcher, load, knowledge, policy, adv)
		return par.NewEngine[*loader.Dataset, Adjustment](w, p), nil
	}
}

// RegisterParams collects the registration inputs.
type RegisterParams struct {
	fx.In

	Registry   *registry.Registry
	Loader     *loader.MultiTargetLoader
	Repository repo.JobRepository
	Advisor    advisor.Advisor
	Config     *config.Config
}

// Register binds the tabular job types to the shared factory.
func Register(p RegisterParams) {
	ec := p.Config.Undertow.Engine
	policy := reflection.NewPolicy(ec.SuccessThreshold, ec.RetryThreshold)
	factory := NewFactory(NewSourceFetcher(), p.Loader, p.Repository, policy, p.Advisor)
	for _, jobType := range []model.JobType{
		model.JobTypeCSVImport,
		model.JobTypeJSONImport,
		model.JobTypeDataLoad,
		model.JobTypeAPIImport,
	} {
		p.Registry.Register(jobType, factory)
	}
}

// Module registers the tabular workers at process start.
var Module = fx.Options(
	fx.Invoke(Register),
)
