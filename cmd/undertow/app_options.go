package main

import (
	"context"
	"embed"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	advisor "github.com/tigerroll/undertow/pkg/etl/advisor"
	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	registry "github.com/tigerroll/undertow/pkg/etl/core/registry"
	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
	embedding "github.com/tigerroll/undertow/pkg/etl/infrastructure/embedding"
	infraMetrics "github.com/tigerroll/undertow/pkg/etl/infrastructure/metrics"
	repository "github.com/tigerroll/undertow/pkg/etl/infrastructure/repository"
	search "github.com/tigerroll/undertow/pkg/etl/infrastructure/search"
	vectorstore "github.com/tigerroll/undertow/pkg/etl/infrastructure/vectorstore"
	listener "github.com/tigerroll/undertow/pkg/etl/listener"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	orchestrator "github.com/tigerroll/undertow/pkg/etl/orchestrator"
	"github.com/tigerroll/undertow/pkg/etl/support/util/logger"
	kg "github.com/tigerroll/undertow/pkg/etl/workers/kg"
	tabular "github.com/tigerroll/undertow/pkg/etl/workers/tabular"
)

// jobDefinitionBytes carries the startup job definition through the fx graph.
type jobDefinitionBytes []byte

// getApplicationOptions assembles the fx options for the full application.
func getApplicationOptions(appCtx context.Context, embeddedCfg []byte, migrations embed.FS, jobYAML []byte) []fx.Option {
	return []fx.Option{
		fx.Supply(
			config.EmbeddedConfig(embeddedCfg),
			jobDefinitionBytes(jobYAML),
			&repository.Migrations{FS: migrations, Path: "resources/migrations"},
			fx.Annotate(appCtx, fx.As(new(context.Context))),
		),
		config.Module,
		event.Module,
		registry.Module,
		repository.Module,
		infraMetrics.Module,
		embedding.Module,
		advisor.Module,
		vectorstore.Module,
		search.Module,
		loader.Module,
		tabular.Module,
		kg.Module,
		orchestrator.Module,
		listener.Module,
		fx.Invoke(startJobExecution),
	}
}

// startJobExecution runs the embedded job definition once the application has
// started, then requests shutdown. The run itself is synchronous; the goroutine
// keeps fx's OnStart phase from blocking on it.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	orch *orchestrator.Orchestrator,
	appCtx context.Context,
	jobYAML jobDefinitionBytes,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
					}
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				runEmbeddedJob(appCtx, orch, jobYAML)
			}()
			return nil
		},
	})
}

// runEmbeddedJob persists and executes the startup job definition.
func runEmbeddedJob(ctx context.Context, orch *orchestrator.Orchestrator, jobYAML jobDefinitionBytes) {
	var payload map[string]interface{}
	if err := yaml.Unmarshal(jobYAML, &payload); err != nil {
		logger.Errorf("Failed to parse job definition: %v", err)
		return
	}
	def, err := model.DecodeJobDefinition(payload)
	if err != nil {
		logger.Errorf("Invalid job definition: %v", err)
		return
	}

	job, err := orch.CreateJob(ctx, def)
	if err != nil {
		logger.Errorf("Failed to create job '%s': %v", def.Name, err)
		return
	}
	logger.Infof("Created job '%s' (ID: %s), executing...", job.Definition.Name, job.ID)

	result, err := orch.ExecuteJob(ctx, job.ID)
	if err != nil {
		logger.Errorf("Job '%s' failed: %v", job.Definition.Name, err)
	}
	if result != nil {
		logger.Infof("Job '%s' finished with status %s: %d processed, %d failed, %d iteration(s)",
			job.Definition.Name, result.Status, result.RecordsProcessed, result.RecordsFailed, result.PARIterations)
	}
}
