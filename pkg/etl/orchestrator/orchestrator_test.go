package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	"github.com/tigerroll/undertow/pkg/etl/core/registry"
	"github.com/tigerroll/undertow/pkg/etl/engine/par"
	"github.com/tigerroll/undertow/pkg/etl/engine/reflection"
	"github.com/tigerroll/undertow/pkg/etl/infrastructure/repository/inmemory"
	"github.com/tigerroll/undertow/pkg/etl/loader"
	"github.com/tigerroll/undertow/pkg/etl/orchestrator"
	"github.com/tigerroll/undertow/pkg/etl/support/util/exception"
	"github.com/tigerroll/undertow/pkg/etl/workers/tabular"
)

func inlineCSVDefinition() model.JobDefinition {
	return model.JobDefinition{
		JobType: model.JobTypeCSVImport,
		Name:    "orders",
		Source: model.SourceConfig{
			Kind:   model.SourceKindInline,
			Format: "csv",
			Inline: &model.InlineSource{Content: "a,b\n1,2\n"},
		},
		Target: model.TargetConfig{
			Targets: []model.StorageTargetConfig{
				{Kind: model.TargetKindSQLTable, SQL: &model.SQLTableTarget{TableName: "t"}},
			},
		},
	}
}

// succeedingWorker completes on the first iteration with fixed metrics.
type succeedingWorker struct{}

func (succeedingWorker) Perceive(ctx context.Context) (*par.Perception[int, struct{}], error) {
	return &par.Perception[int, struct{}]{Data: 42}, nil
}

func (succeedingWorker) Act(ctx context.Context, p *par.Perception[int, struct{}]) (*par.Action, error) {
	return &par.Action{Metrics: model.ExecutionMetrics{RecordsProcessed: 42}}, nil
}

func (succeedingWorker) Reflect(ctx context.Context, a *par.Action, p *par.Perception[int, struct{}]) (*par.Reflection[struct{}], error) {
	return &par.Reflection[struct{}]{Success: true}, nil
}

func stubFactory() registry.WorkerFactory {
	return func(def model.JobDefinition, p par.EngineParams) (par.Executor, error) {
		return par.NewEngine[int, struct{}](succeedingWorker{}, p), nil
	}
}

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *inmemory.Repository) {
	t.Helper()
	store := inmemory.NewRepository()
	reg := registry.NewRegistry()
	reg.Register(model.JobTypeCSVImport, stubFactory())
	o := orchestrator.NewOrchestrator(store, reg, nil, nil, nil, config.EngineConfig{MaxIterations: 3})
	return o, store
}

func TestCreateAndExecuteJob(t *testing.T) {
	o, store := newTestOrchestrator(t)
	ctx := context.Background()

	job, err := o.CreateJob(ctx, inlineCSVDefinition())
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status)

	result, err := o.ExecuteJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, result.Status)
	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, 42, result.RecordsProcessed)

	// The job row reaches its terminal state and the run row is retrievable.
	stored, err := store.FindJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)

	runs, err := o.GetJobRuns(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)

	// The in-flight set is cleaned up after the run.
	assert.False(t, o.IsJobRunning(job.ID))
	assert.Empty(t, o.GetRunningJobs())
}

func TestCreateJobRejectsUnknownWorker(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	def := inlineCSVDefinition()
	def.JobType = model.JobTypeKGBuild
	_, err := o.CreateJob(context.Background(), def)
	require.Error(t, err)
	assert.Equal(t, exception.CodeWorkerNotFound, exception.CodeOf(err))
}

func TestCreateJobRejectsInvalidDefinition(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	def := inlineCSVDefinition()
	def.Name = ""
	_, err := o.CreateJob(context.Background(), def)
	assert.Error(t, err)
}

func TestExecuteJobUnknownID(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.ExecuteJob(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.Equal(t, exception.CodeJobNotFound, exception.CodeOf(err))
}

func TestExecuteJobDirect(t *testing.T) {
	o, store := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.ExecuteJobDirect(ctx, inlineCSVDefinition())
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, result.Status)
	assert.NotEmpty(t, result.JobID)

	// No job row is persisted, but the run row is.
	jobs, err := store.FindJobs(ctx, repo.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	run, err := store.FindJobRunByID(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, run.JobID)
}

func TestExecuteJobReexecution(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	job, err := o.CreateJob(ctx, inlineCSVDefinition())
	require.NoError(t, err)

	// A completed job may be executed again; each run gets its own row.
	first, err := o.ExecuteJob(ctx, job.ID)
	require.NoError(t, err)
	second, err := o.ExecuteJob(ctx, job.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	runs, err := o.GetJobRuns(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

// The tabular worker path is exercised end to end through the orchestrator:
// inline CSV in, record counters out, with no real storage behind the loader.
func TestExecuteJobDirectWithTabularWorker(t *testing.T) {
	store := inmemory.NewRepository()
	reg := registry.NewRegistry()

	cfg := config.NewConfig()
	// A nil connection behind the sql_table builder makes every load a
	// whole-target failure.
	l := loader.NewMultiTargetLoader(0, nil)
	l.RegisterBuilder(model.TargetKindSQLTable, loader.NewSQLTargetFactory(nil, 0).Builder())
	policy := reflection.NewPolicy(cfg.Undertow.Engine.SuccessThreshold, cfg.Undertow.Engine.RetryThreshold)
	reg.Register(model.JobTypeCSVImport, tabular.NewFactory(tabular.NewSourceFetcher(), l, nil, policy, nil))

	o := orchestrator.NewOrchestrator(store, reg, nil, nil, nil, cfg.Undertow.Engine)

	result, err := o.ExecuteJobDirect(context.Background(), inlineCSVDefinition())
	require.NoError(t, err)
	// The sql_table target has no database behind it, so every row fails and
	// the run finishes FAILED while keeping its partial accounting.
	assert.Equal(t, model.JobStatusFailed, result.Status)
	assert.Equal(t, 0, result.RecordsProcessed)
	assert.Equal(t, 1, result.RecordsFailed)
	assert.NotEmpty(t, result.Errors)
}
