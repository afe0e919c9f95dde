package metrics

import (
	"go.uber.org/fx"

	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
)

// Module provides the Prometheus recorder and OpenTelemetry tracer as the core
// metrics interfaces. Applications using this module must not also include the
// core no-op module.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPrometheusRecorder,
		fx.As(new(metrics.MetricRecorder)),
	)),
	fx.Provide(fx.Annotate(
		NewOpenTelemetryTracer,
		fx.As(new(metrics.Tracer)),
	)),
)
