package metrics

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics related to run
// execution. It provides a standardized way to record run-level and
// record-level events, facilitating integration with different metrics
// backends (e.g., Prometheus).
type MetricRecorder interface {
	// RecordRunStart records the start of a JobRun.
	RecordRunStart(ctx context.Context, jobType model.JobType, run *model.JobRun)

	// RecordRunEnd records the end of a JobRun, including its terminal status,
	// duration, and record counters.
	RecordRunEnd(ctx context.Context, jobType model.JobType, run *model.JobRun)

	// RecordIteration records one completed perceive/act/reflect cycle.
	RecordIteration(ctx context.Context, jobType model.JobType, success bool)

	// RecordTargetLoad records the per-destination outcome of one fan-out load.
	RecordTargetLoad(ctx context.Context, targetKind string, succeeded, failed int)
}

// Tracer is an abstract interface for tracing run execution. Spans wrap the
// whole run and each perceive/act/reflect phase.
type Tracer interface {
	// StartRunSpan starts a span covering an entire run. The returned function
	// ends the span.
	StartRunSpan(ctx context.Context, jobType model.JobType, runID string) (context.Context, func())

	// StartPhaseSpan starts a span covering one PAR phase ("perceive", "act",
	// "reflect") of one iteration.
	StartPhaseSpan(ctx context.Context, phase string, iteration int) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
}
