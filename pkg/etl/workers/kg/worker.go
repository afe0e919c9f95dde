// Package kg implements the knowledge-graph build worker. The graph backend is
// an opaque capability: the worker hands it the whole dataset and reports the
// backend's own accounting.
package kg

import (
	"context"
	"fmt"

	advisor "github.com/tigerroll/undertow/pkg/etl/advisor"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	par "github.com/tigerroll/undertow/pkg/etl/engine/par"
	reflection "github.com/tigerroll/undertow/pkg/etl/engine/reflection"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	tabular "github.com/tigerroll/undertow/pkg/etl/workers/tabular"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// BuildStats is the graph backend's accounting for one build.
type BuildStats struct {
	NodesCreated     int
	EdgesCreated     int
	RecordsProcessed int
	RecordsFailed    int
	Errors           []model.ETLError
}

// GraphService is the knowledge-graph capability consumed wholesale by this
// worker.
type GraphService interface {
	// Build ingests the dataset into the graph.
	Build(ctx context.Context, ds *loader.Dataset) (*BuildStats, error)
	// Clear removes the graph's contents.
	Clear(ctx context.Context) error
	// Stats reports the current graph size as {nodes, edges}.
	Stats(ctx context.Context) (nodes int, edges int, err error)
}

// Adjustment carried between iterations: a failed build may request a clean
// rebuild on the retry.
type Adjustment struct {
	ClearBeforeBuild bool
}

// Worker implements par.Worker for the kg_build job type.
type Worker struct {
	def       model.JobDefinition
	fetcher   *tabular.SourceFetcher
	graph     GraphService
	knowledge repo.KnowledgeStore
	policy    reflection.Policy
	advisor   advisor.Advisor
}

// NewWorker creates a kg_build worker for one job definition. knowledge may be
// nil; the worker then skips the lesson lookup.
func NewWorker(def model.JobDefinition, fetcher *tabular.SourceFetcher, graph GraphService, knowledge repo.KnowledgeStore, policy reflection.Policy, adv advisor.Advisor) *Worker {
	if adv == nil {
		adv = advisor.NewBestEffort(nil)
	}
	return &Worker{def: def, fetcher: fetcher, graph: graph, knowledge: knowledge, policy: policy, advisor: adv}
}

var _ par.Worker[*loader.Dataset, Adjustment] = (*Worker)(nil)

// Perceive fetches the source dataset for graph construction.
func (w *Worker) Perceive(ctx context.Context) (*par.Perception[*loader.Dataset, Adjustment], error) {
	if w.graph == nil {
		return nil, fmt.Errorf("no graph service configured for kg_build jobs")
	}

	var ds *loader.Dataset
	var err error
	if w.def.Source.Kind == model.SourceKindDatabase {
		ds, err = w.fetcher.FetchDataset(ctx, w.def.Source.Database)
	} else {
		var payload string
		payload, err = w.fetcher.FetchText(ctx, w.def.Source)
		if err == nil {
			ds, _, err = tabular.ParsePayload(payload, w.def.Source.Format)
		}
	}
	if err != nil {
		return nil, err
	}
	w.consultKnowledge(ctx)
	return &par.Perception[*loader.Dataset, Adjustment]{Data: ds}, nil
}

// consultKnowledge surfaces recent lessons recorded for this job's pattern.
// The log is advisory; a lookup failure never blocks perception.
func (w *Worker) consultKnowledge(ctx context.Context) {
	if w.knowledge == nil {
		return
	}
	records, err := w.knowledge.FindKnowledgeByPattern(ctx, w.def.Pattern(), 5)
	if err != nil {
		logger.Debugf("job %s: knowledge lookup failed: %v", w.def.Pattern(), err)
		return
	}
	for _, rec := range records {
		logger.Infof("job %s: prior lesson (rate %.2f): %s",
			w.def.Pattern(), rec.SuccessRate, rec.LessonsLearned)
	}
}

// Act invokes the graph build, optionally clearing first per the previous
// reflection. A backend failure is recorded against every row rather than
// aborting the run.
func (w *Worker) Act(ctx context.Context, p *par.Perception[*loader.Dataset, Adjustment]) (*par.Action, error) {
	ds := p.Data
	if p.PreviousAdjustment != nil && p.PreviousAdjustment.ClearBeforeBuild {
		if err := w.graph.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear graph before rebuild: %w", err)
		}
		logger.Infof("job %s: cleared graph before rebuild", w.def.Pattern())
	}

	stats, err := w.graph.Build(ctx, ds)
	if err != nil {
		return &par.Action{
			Metrics: model.ExecutionMetrics{RecordsFailed: ds.RowCount()},
			Errors: []model.ETLError{model.NewETLError(model.ErrCodeTarget,
				fmt.Sprintf("graph build failed: %s", err.Error()))},
		}, nil
	}

	if nodes, edges, serr := w.graph.Stats(ctx); serr == nil {
		logger.Infof("job %s: graph now holds %d node(s), %d edge(s)", w.def.Pattern(), nodes, edges)
	}
	return &par.Action{
		Result: stats,
		Metrics: model.ExecutionMetrics{
			RecordsProcessed: stats.RecordsProcessed,
			RecordsFailed:    stats.RecordsFailed,
		},
		Errors: stats.Errors,
	}, nil
}

// Reflect scores the build and requests a clean rebuild when retrying.
func (w *Worker) Reflect(ctx context.Context, action *par.Action, p *par.Perception[*loader.Dataset, Adjustment]) (*par.Reflection[Adjustment], error) {
	assessed := w.policy.Assess(action.Metrics)
	quality, _ := w.advisor.AssessQuality(ctx, w.def.Pattern(), action.Metrics, action.Errors)

	r := &par.Reflection[Adjustment]{
		Success:      assessed.Success,
		Retry:        assessed.Retry,
		Confidence:   quality.Score,
		Improvements: quality.Improvements,
		Lesson:       quality.Lesson,
	}
	if r.Retry {
		r.Adjustment = &Adjustment{ClearBeforeBuild: true}
	}
	return r, nil
}
