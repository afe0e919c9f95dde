package loader

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
	exception "github.com/tigerroll/undertow/pkg/etl/support/util/exception"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

const moduleName = "loader"

// Target writes one dataset to a single destination. Implementations report
// record-level outcomes in the TargetResult and reserve the error return for
// failures that prevented the target from accepting any write at all.
type Target interface {
	Load(ctx context.Context, ds *Dataset, types map[string]ColumnType) (*TargetResult, error)
}

// TargetBuilder constructs a Target from its configuration.
type TargetBuilder func(cfg model.StorageTargetConfig) (Target, error)

// TargetResult is the per-destination outcome of one fan-out load.
type TargetResult struct {
	TargetName string
	Kind       model.TargetKind
	Succeeded  int
	Failed     int
	Errors     []model.ETLError
}

// Report aggregates the per-target results of one fan-out load.
type Report struct {
	Results []TargetResult
}

// Totals sums the per-target counters. recordsProcessed + recordsFailed
// always equals the sum of succeeded + failed over all targets.
func (r *Report) Totals() model.ExecutionMetrics {
	var m model.ExecutionMetrics
	for _, res := range r.Results {
		m.RecordsProcessed += res.Succeeded
		m.RecordsFailed += res.Failed
	}
	return m
}

// AllErrors flattens the per-target record-level errors in target order.
func (r *Report) AllErrors() []model.ETLError {
	var errs []model.ETLError
	for _, res := range r.Results {
		errs = append(errs, res.Errors...)
	}
	return errs
}

// MultiTargetLoader fans one dataset out to every configured destination.
// Destinations fail independently: a target that errors out entirely is
// recorded as all rows failed and the remaining targets still receive their
// writes. No cross-target transaction exists.
type MultiTargetLoader struct {
	builders       map[model.TargetKind]TargetBuilder
	typeSampleSize int
	recorder       metrics.MetricRecorder
}

// NewMultiTargetLoader creates a loader with no registered target kinds.
func NewMultiTargetLoader(typeSampleSize int, recorder metrics.MetricRecorder) *MultiTargetLoader {
	if typeSampleSize <= 0 {
		typeSampleSize = DefaultTypeSampleSize
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &MultiTargetLoader{
		builders:       make(map[model.TargetKind]TargetBuilder),
		typeSampleSize: typeSampleSize,
		recorder:       recorder,
	}
}

// RegisterBuilder binds a target kind to its builder. Last registration wins.
func (l *MultiTargetLoader) RegisterBuilder(kind model.TargetKind, builder TargetBuilder) {
	l.builders[kind] = builder
}

// Load writes the dataset to every target in configuration order and returns
// the per-target report. Only a structurally unusable dataset or an empty
// target list yields an error; destination failures are captured per target.
func (l *MultiTargetLoader) Load(ctx context.Context, ds *Dataset, targets []model.StorageTargetConfig) (*Report, error) {
	if err := ds.Validate(); err != nil {
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"dataset cannot be loaded", err)
	}
	if len(targets) == 0 {
		return nil, exception.NewEngineErrorf(moduleName, exception.CodeExecutionError,
			"no storage targets configured")
	}

	types := InferColumnTypes(ds, l.typeSampleSize)
	report := &Report{Results: make([]TargetResult, 0, len(targets))}

	for _, cfg := range targets {
		result := l.loadOne(ctx, ds, types, cfg)
		l.recorder.RecordTargetLoad(ctx, string(cfg.Kind), result.Succeeded, result.Failed)
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func (l *MultiTargetLoader) loadOne(ctx context.Context, ds *Dataset, types map[string]ColumnType, cfg model.StorageTargetConfig) TargetResult {
	name := cfg.Name()
	failAll := func(code, msg string) TargetResult {
		logger.Warnf("target %s failed entirely: %s", name, msg)
		return TargetResult{
			TargetName: name,
			Kind:       cfg.Kind,
			Failed:     ds.RowCount(),
			Errors: []model.ETLError{
				model.NewETLError(code, name+": "+msg),
			},
		}
	}

	builder, ok := l.builders[cfg.Kind]
	if !ok {
		return failAll(model.ErrCodeTarget, "unsupported target kind '"+string(cfg.Kind)+"'")
	}
	target, err := builder(cfg)
	if err != nil {
		return failAll(model.ErrCodeTarget, exception.ExtractErrorMessage(err))
	}

	result, err := target.Load(ctx, ds, types)
	if err != nil {
		return failAll(model.ErrCodeTarget, exception.ExtractErrorMessage(err))
	}
	if result == nil {
		result = &TargetResult{}
	}
	result.TargetName = name
	result.Kind = cfg.Kind
	logger.Debugf("target %s loaded: %d succeeded, %d failed", name, result.Succeeded, result.Failed)
	return *result
}
