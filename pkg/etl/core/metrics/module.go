package metrics

import (
	"go.uber.org/fx"
)

// Module provides the no-op metrics implementations. Applications wire either
// this module or a real backend module (such as infrastructure/metrics), never
// both.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewNoOpMetricRecorder,
		fx.As(new(MetricRecorder)),
	)),
	fx.Provide(fx.Annotate(
		NewNoOpTracer,
		fx.As(new(Tracer)),
	)),
)
