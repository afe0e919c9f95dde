package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
)

const tracerName = "github.com/tigerroll/undertow"

// OpenTelemetryTracer implements metrics.Tracer on the OpenTelemetry trace
// API. Span export follows whatever tracer provider the host process installs;
// with none installed the API no-ops.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates the tracer.
func NewOpenTelemetryTracer() *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: otel.Tracer(tracerName)}
}

// StartRunSpan starts a span covering an entire run.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, jobType model.JobType, runID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "etl.run",
		trace.WithAttributes(
			attribute.String("etl.job_type", string(jobType)),
			attribute.String("etl.run_id", runID),
		))
	return ctx, func() { span.End() }
}

// StartPhaseSpan starts a span covering one PAR phase of one iteration.
func (t *OpenTelemetryTracer) StartPhaseSpan(ctx context.Context, phase string, iteration int) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("etl.%s", phase),
		trace.WithAttributes(attribute.Int("etl.iteration", iteration)))
	return ctx, func() { span.End() }
}

// RecordError records an error on the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("etl.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
