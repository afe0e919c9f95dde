// Package par implements the bounded perceive/act/reflect execution engine.
// A worker supplies the three phases; the engine drives them for up to a fixed
// number of iterations, feeding each reflection's adjustment into the next
// perception.
package par

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// Perception is the output of the perceive phase: the data gathered for this
// iteration plus the loop state the engine injects before calling Act.
type Perception[T any, A any] struct {
	// Data is whatever the worker gathered (parsed rows, fetched payloads).
	Data T
	// Context carries free-form state shared across the phases of one iteration.
	Context model.ExecutionContext
	// Iteration is the zero-based loop counter, set by the engine.
	Iteration int
	// PreviousAdjustment is the adjustment produced by the previous iteration's
	// reflection, or nil on the first iteration. Set by the engine.
	PreviousAdjustment *A
}

// Action is the output of the act phase. Metrics and Errors describe
// record-level outcomes only; phase-level failures are returned as Go errors
// and abort the run.
type Action struct {
	// Result is an optional worker-specific artifact of the action.
	Result interface{}
	Metrics model.ExecutionMetrics
	Errors  []model.ETLError
}

// Reflection is the output of the reflect phase. Retry is only honored when
// Success is false.
type Reflection[A any] struct {
	Success    bool
	Retry      bool
	Confidence float64
	// Adjustment, when non-nil, is handed to the next iteration's perception.
	Adjustment   *A
	Improvements []string
	// Lesson, when non-empty, is appended to the knowledge store under the
	// job's pattern.
	Lesson string
}

// Worker is the three-phase contract a job implementation fulfills. T is the
// perceived data type, A the adjustment type carried between iterations.
//
// Phase errors are execution-level: the engine aborts the run on any non-nil
// error. Record-level problems belong in Action.Errors instead.
type Worker[T any, A any] interface {
	Perceive(ctx context.Context) (*Perception[T, A], error)
	Act(ctx context.Context, p *Perception[T, A]) (*Action, error)
	Reflect(ctx context.Context, action *Action, p *Perception[T, A]) (*Reflection[A], error)
}

// Executor is the type-erased face of an Engine. The registry and orchestrator
// operate on Executors so workers with different data and adjustment types can
// share one dispatch path.
type Executor interface {
	// Execute runs the full perceive/act/reflect loop and returns the run
	// result. The result is non-nil even when err is non-nil; on an
	// execution-level failure it carries the terminal FAILED state.
	Execute(ctx context.Context) (*model.JobRunResult, error)
}

// JobTracker persists job-row status transitions around a run. Persisted jobs
// are tracked through the repository; direct executions use NopTracker.
type JobTracker interface {
	MarkRunning(ctx context.Context) error
	MarkFinished(ctx context.Context, success bool) error
}

// NopTracker is a JobTracker for runs that have no persisted job row.
type NopTracker struct{}

func (NopTracker) MarkRunning(ctx context.Context) error               { return nil }
func (NopTracker) MarkFinished(ctx context.Context, success bool) error { return nil }
