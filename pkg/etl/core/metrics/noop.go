package metrics

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// NoOpMetricRecorder is a MetricRecorder that discards all measurements.
// It is the fallback when no metrics backend is wired.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new NoOpMetricRecorder.
func NewNoOpMetricRecorder() *NoOpMetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, jobType model.JobType, run *model.JobRun) {
}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, jobType model.JobType, run *model.JobRun) {
}
func (r *NoOpMetricRecorder) RecordIteration(ctx context.Context, jobType model.JobType, success bool) {
}
func (r *NoOpMetricRecorder) RecordTargetLoad(ctx context.Context, targetKind string, succeeded, failed int) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is a Tracer that produces no spans.
type NoOpTracer struct{}

// NewNoOpTracer creates a new NoOpTracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, jobType model.JobType, runID string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartPhaseSpan(ctx context.Context, phase string, iteration int) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

var _ Tracer = (*NoOpTracer)(nil)
