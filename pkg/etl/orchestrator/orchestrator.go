// Package orchestrator provides the top-level façade: it resolves a job to its
// worker through the registry, drives the perceive/act/reflect engine, tags
// the event stream, and tracks in-flight jobs. The in-flight set is owned by
// the orchestrator instance, never by package state; construct one per
// process and inject it where needed.
package orchestrator

import (
	"context"
	"sync"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
	registry "github.com/tigerroll/undertow/pkg/etl/core/registry"
	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
	par "github.com/tigerroll/undertow/pkg/etl/engine/par"
	exception "github.com/tigerroll/undertow/pkg/etl/support/util/exception"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

const moduleName = "orchestrator"

// Orchestrator coordinates job submission and execution.
type Orchestrator struct {
	repository repo.JobRepository
	registry   *registry.Registry
	publisher  event.Publisher
	recorder   metrics.MetricRecorder
	tracer     metrics.Tracer
	engineCfg  config.EngineConfig

	mu      sync.Mutex
	running map[string]struct{}
}

// NewOrchestrator creates an orchestrator instance.
func NewOrchestrator(
	repository repo.JobRepository,
	reg *registry.Registry,
	publisher event.Publisher,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	engineCfg config.EngineConfig,
) *Orchestrator {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &Orchestrator{
		repository: repository,
		registry:   reg,
		publisher:  publisher,
		recorder:   recorder,
		tracer:     tracer,
		engineCfg:  engineCfg,
		running:    make(map[string]struct{}),
	}
}

// CreateJob validates and persists a new job in PENDING state.
func (o *Orchestrator) CreateJob(ctx context.Context, def model.JobDefinition) (*model.Job, error) {
	if err := def.Validate(); err != nil {
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"invalid job definition", err)
	}
	if _, err := o.registry.Resolve(def.JobType); err != nil {
		return nil, err
	}
	job := model.NewJob(def)
	if err := o.repository.SaveJob(ctx, job); err != nil {
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"failed to persist job", err)
	}
	logger.Infof("created job %s (%s)", job.ID, def.Pattern())
	return job, nil
}

// ExecuteJob loads a persisted job and runs it. A job already in flight is
// refused; the in-flight entry is removed on every exit path.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string) (*model.JobRunResult, error) {
	job, err := o.repository.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, exception.NewEngineError(moduleName, exception.CodeJobNotFound,
			"job "+jobID+" not found", err)
	}

	if !o.markRunning(jobID) {
		return nil, exception.NewEngineErrorf(moduleName, exception.CodeExecutionError,
			"job %s is already running", jobID)
	}
	defer o.unmarkRunning(jobID)

	executor, err := o.buildExecutor(job.Definition, job.ID, &repoTracker{jobs: o.repository, job: job})
	if err != nil {
		return nil, err
	}
	return executor.Execute(ctx)
}

// ExecuteJobDirect runs a definition without persisting a job record. The run
// is tagged with a synthetic job ID so its event stream and run rows remain
// addressable.
func (o *Orchestrator) ExecuteJobDirect(ctx context.Context, def model.JobDefinition) (*model.JobRunResult, error) {
	if err := def.Validate(); err != nil {
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"invalid job definition", err)
	}
	jobID := model.NewID()

	if !o.markRunning(jobID) {
		return nil, exception.NewEngineErrorf(moduleName, exception.CodeExecutionError,
			"job %s is already running", jobID)
	}
	defer o.unmarkRunning(jobID)

	executor, err := o.buildExecutor(def, jobID, par.NopTracker{})
	if err != nil {
		return nil, err
	}
	return executor.Execute(ctx)
}

func (o *Orchestrator) buildExecutor(def model.JobDefinition, jobID string, tracker par.JobTracker) (par.Executor, error) {
	factory, err := o.registry.Resolve(def.JobType)
	if err != nil {
		return nil, err
	}
	return factory(def, par.EngineParams{
		JobID:         jobID,
		JobType:       def.JobType,
		JobName:       def.Name,
		Pattern:       def.Pattern(),
		MaxIterations: o.engineCfg.MaxIterations,
		Runs:          o.repository,
		Knowledge:     o.repository,
		Tracker:       tracker,
		Publisher:     event.Tagged(o.publisher, jobID),
		Recorder:      o.recorder,
		Tracer:        o.tracer,
	})
}

// IsJobRunning reports whether a job is currently in flight.
func (o *Orchestrator) IsJobRunning(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[jobID]
	return ok
}

// GetRunningJobs returns the IDs of every in-flight job.
func (o *Orchestrator) GetRunningJobs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.running))
	for id := range o.running {
		ids = append(ids, id)
	}
	return ids
}

// GetJobs lists persisted jobs, newest first.
func (o *Orchestrator) GetJobs(ctx context.Context, filter repo.JobFilter) ([]*model.Job, error) {
	return o.repository.FindJobs(ctx, filter)
}

// GetJobRuns lists a job's run history, newest first.
func (o *Orchestrator) GetJobRuns(ctx context.Context, jobID string) ([]*model.JobRun, error) {
	return o.repository.FindJobRunsByJobID(ctx, jobID)
}

// GetJobRun retrieves one run record.
func (o *Orchestrator) GetJobRun(ctx context.Context, runID string) (*model.JobRun, error) {
	return o.repository.FindJobRunByID(ctx, runID)
}

func (o *Orchestrator) markRunning(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.running[jobID]; exists {
		return false
	}
	o.running[jobID] = struct{}{}
	return true
}

func (o *Orchestrator) unmarkRunning(jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, jobID)
}

// repoTracker persists job status transitions around a run.
type repoTracker struct {
	jobs repo.JobStore
	job  *model.Job
}

func (t *repoTracker) MarkRunning(ctx context.Context) error {
	t.job.MarkAsRunning()
	return t.jobs.UpdateJob(ctx, t.job)
}

func (t *repoTracker) MarkFinished(ctx context.Context, success bool) error {
	if success {
		t.job.MarkAsCompleted()
	} else {
		t.job.MarkAsFailed()
	}
	return t.jobs.UpdateJob(ctx, t.job)
}

var _ par.JobTracker = (*repoTracker)(nil)
