// Package tabular implements the workers that ingest tabular payloads: CSV and
// JSON documents, remote API responses, and database query results. One worker
// type covers them all; the job type selects the source handling and payload
// format.
package tabular

import (
	"context"
	"fmt"
	"sort"
	"time"

	advisor "github.com/tigerroll/undertow/pkg/etl/advisor"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	par "github.com/tigerroll/undertow/pkg/etl/engine/par"
	reflection "github.com/tigerroll/undertow/pkg/etl/engine/reflection"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Adjustment is the correction carried from one iteration's reflection to the
// next iteration. Excluded rows are dropped before loading so a persistently
// bad record stops poisoning retries.
type Adjustment struct {
	// ExcludeRows lists 1-based dataset row positions to drop.
	ExcludeRows []int
}

// knowledgeLookback caps how many prior lessons a perceive reads.
const knowledgeLookback = 5

// Worker ingests one tabular payload per the job definition. It implements
// par.Worker with a dataset payload and row-exclusion adjustments.
type Worker struct {
	def       model.JobDefinition
	fetcher   *SourceFetcher
	load      *loader.MultiTargetLoader
	knowledge repo.KnowledgeStore
	policy    reflection.Policy
	advisor   advisor.Advisor

	// parseErrors captures rows dropped during the last perceive; they count
	// as failed records in the following act.
	parseErrors []model.ETLError
	// rowMap translates 1-based positions in the compacted dataset handed to
	// the loader back to positions in the perceived dataset. Nil when no rows
	// were excluded.
	rowMap []int
}

// NewWorker creates a tabular worker for one job definition. knowledge may be
// nil; the worker then skips the lesson lookup.
func NewWorker(def model.JobDefinition, fetcher *SourceFetcher, load *loader.MultiTargetLoader, knowledge repo.KnowledgeStore, policy reflection.Policy, adv advisor.Advisor) *Worker {
	if adv == nil {
		adv = advisor.NewBestEffort(nil)
	}
	return &Worker{
		def:       def,
		fetcher:   fetcher,
		load:      load,
		knowledge: knowledge,
		policy:    policy,
		advisor:   adv,
	}
}

var _ par.Worker[*loader.Dataset, Adjustment] = (*Worker)(nil)

// Perceive fetches and parses the source payload into a dataset.
func (w *Worker) Perceive(ctx context.Context) (*par.Perception[*loader.Dataset, Adjustment], error) {
	w.parseErrors = nil

	var (
		ds   *loader.Dataset
		errs []model.ETLError
		err  error
	)
	if w.def.Source.Kind == model.SourceKindDatabase {
		ds, err = w.fetcher.FetchDataset(ctx, w.def.Source.Database)
	} else {
		var payload string
		payload, err = w.fetcher.FetchText(ctx, w.def.Source)
		if err == nil {
			ds, errs, err = ParsePayload(payload, w.format())
		}
	}
	if err != nil {
		return nil, err
	}

	w.parseErrors = errs
	w.consultKnowledge(ctx)
	logger.Debugf("job %s: perceived %d row(s), %d parse error(s)",
		w.def.Pattern(), ds.RowCount(), len(errs))
	return &par.Perception[*loader.Dataset, Adjustment]{Data: ds}, nil
}

// consultKnowledge surfaces recent lessons recorded for this job's pattern.
// The log is advisory; a lookup failure never blocks perception.
func (w *Worker) consultKnowledge(ctx context.Context) {
	if w.knowledge == nil {
		return
	}
	records, err := w.knowledge.FindKnowledgeByPattern(ctx, w.def.Pattern(), knowledgeLookback)
	if err != nil {
		logger.Debugf("job %s: knowledge lookup failed: %v", w.def.Pattern(), err)
		return
	}
	for _, rec := range records {
		logger.Infof("job %s: prior lesson (rate %.2f): %s",
			w.def.Pattern(), rec.SuccessRate, rec.LessonsLearned)
	}
}

// Act fans the dataset out to the configured targets, applying any row
// exclusions carried over from the previous reflection.
func (w *Worker) Act(ctx context.Context, p *par.Perception[*loader.Dataset, Adjustment]) (*par.Action, error) {
	ds := p.Data
	w.rowMap = nil
	if p.PreviousAdjustment != nil && len(p.PreviousAdjustment.ExcludeRows) > 0 {
		ds, w.rowMap = excludeRows(ds, p.PreviousAdjustment.ExcludeRows)
		logger.Infof("job %s: iteration %d excludes %d row(s) per previous reflection",
			w.def.Pattern(), p.Iteration, len(p.PreviousAdjustment.ExcludeRows))
	}

	targets := w.def.Target.Normalize()
	start := time.Now()
	report, err := w.load.Load(ctx, ds, targets)
	if err != nil {
		return nil, err
	}

	metrics := report.Totals()
	metrics.RecordsFailed += len(w.parseErrors)
	metrics.DurationMs = time.Since(start).Milliseconds()

	errs := append([]model.ETLError{}, w.parseErrors...)
	errs = append(errs, report.AllErrors()...)
	return &par.Action{
		Result:  report,
		Metrics: metrics,
		Errors:  errs,
	}, nil
}

// Reflect scores the action with the shared policy, consults the best-effort
// advisor for improvements, and proposes row exclusions for the retry.
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
		var loadErrs []model.ETLError
		if report, ok := action.Result.(*loader.Report); ok {
			loadErrs = report.AllErrors()
		}
		if excluded := w.failedRowPositions(loadErrs, p.PreviousAdjustment); len(excluded) > 0 {
			r.Adjustment = &Adjustment{ExcludeRows: excluded}
			r.Improvements = append(r.Improvements,
				fmt.Sprintf("exclude %d row(s) that failed repeatedly", len(excluded)))
		}
	}
	return r, nil
}

func (w *Worker) format() string {
	if w.def.Source.Format != "" {
		return w.def.Source.Format
	}
	switch w.def.JobType {
	case model.JobTypeCSVImport:
		return "csv"
	default:
		return "json"
	}
}

// failedRowPositions merges the row positions named by loader errors with the
// exclusions already in force. Loader errors address the compacted dataset, so
// positions are translated back through rowMap before merging; exclusions
// always name perceived-dataset rows.
func (w *Worker) failedRowPositions(errs []model.ETLError, prev *Adjustment) []int {
	seen := make(map[int]struct{})
	if prev != nil {
		for _, row := range prev.ExcludeRows {
			seen[row] = struct{}{}
		}
	}
	for _, e := range errs {
		if e.Row <= 0 {
			continue
		}
		row := e.Row
		if w.rowMap != nil {
			if e.Row > len(w.rowMap) {
				continue
			}
			row = w.rowMap[e.Row-1]
		}
		seen[row] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for row := range seen {
		out = append(out, row)
	}
	sort.Ints(out)
	return out
}

// excludeRows returns a copy of the dataset without the listed 1-based rows,
// plus the original position of each kept row.
func excludeRows(ds *loader.Dataset, positions []int) (*loader.Dataset, []int) {
	skip := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		skip[pos] = struct{}{}
	}
	rows := make([]map[string]interface{}, 0, len(ds.Rows))
	kept := make([]int, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		if _, drop := skip[i+1]; drop {
			continue
		}
		rows = append(rows, row)
		kept = append(kept, i+1)
	}
	return loader.NewDataset(ds.Columns, rows), kept
}
