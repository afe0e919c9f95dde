package par

import (
	"context"
	"errors"
	"sync/atomic"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repository "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
	exception "github.com/tigerroll/undertow/pkg/etl/support/util/exception"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

const moduleName = "par_engine"

// DefaultMaxIterations bounds the perceive/act/reflect loop.
const DefaultMaxIterations = 3

// EngineParams collects the collaborators and identity an Engine needs.
// Zero-value optional fields fall back to no-op implementations.
type EngineParams struct {
	JobID   string
	JobType model.JobType
	JobName string
	// Pattern keys knowledge records, normally "jobType:name".
	Pattern string

	MaxIterations int

	Runs      repository.JobRunStore
	Knowledge repository.KnowledgeStore
	Tracker   JobTracker
	Publisher event.Publisher
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
}

// Engine drives one worker through the bounded perceive/act/reflect loop and
// persists the run record around it. An Engine executes at most one run at a
// time; Execute returns an error if called while a run is already active.
type Engine[T any, A any] struct {
	worker Worker[T, A]
	p      EngineParams

	active atomic.Bool
}

// NewEngine creates an engine for one worker.
func NewEngine[T any, A any](worker Worker[T, A], p EngineParams) *Engine[T, A] {
	if p.MaxIterations <= 0 {
		p.MaxIterations = DefaultMaxIterations
	}
	if p.Tracker == nil {
		p.Tracker = NopTracker{}
	}
	if p.Publisher == nil {
		p.Publisher = event.NopPublisher{}
	}
	if p.Recorder == nil {
		p.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if p.Tracer == nil {
		p.Tracer = metrics.NewNoOpTracer()
	}
	return &Engine[T, A]{worker: worker, p: p}
}

// Execute runs the full loop. See Executor for the result contract.
func (e *Engine[T, A]) Execute(ctx context.Context) (res *model.JobRunResult, err error) {
	if !e.active.CompareAndSwap(false, true) {
		return nil, exception.NewEngineErrorf(moduleName, exception.CodePARLoopFailed,
			"run already active for job %s", e.p.JobID)
	}
	defer e.active.Store(false)

	run := model.NewJobRun(e.p.JobID)
	ctx, endRun := e.p.Tracer.StartRunSpan(ctx, e.p.JobType, run.ID)
	defer endRun()

	defer func() {
		if r := recover(); r != nil {
			res, err = e.failRun(ctx, run, exception.NewEngineErrorf(
				moduleName, exception.CodeExecutionError, "panic during run %s: %v", run.ID, r))
		}
	}()

	if terr := e.p.Tracker.MarkRunning(ctx); terr != nil {
		return e.failRun(ctx, run, terr)
	}
	if serr := e.p.Runs.SaveJobRun(ctx, run); serr != nil {
		return e.failRun(ctx, run, serr)
	}
	e.p.Recorder.RecordRunStart(ctx, e.p.JobType, run)
	e.publish(ctx, event.TypeJobStarted, run.ID, 0, map[string]interface{}{
		"jobType": string(e.p.JobType),
		"jobName": e.p.JobName,
	})

	var (
		lastAdjustment *A
		lastAction     *Action
		lastReflection *Reflection[A]
		improvements   []string
		iterations     int
	)

	for iteration := 0; iteration < e.p.MaxIterations; iteration++ {
		iterations = iteration + 1

		perception, perr := e.perceive(ctx, iteration, lastAdjustment)
		if perr != nil {
			return e.failRun(ctx, run, perr)
		}
		e.publish(ctx, event.TypePerceptionComplete, run.ID, iteration, map[string]interface{}{
			"hasAdjustment": lastAdjustment != nil,
		})

		action, aerr := e.act(ctx, iteration, perception)
		if aerr != nil {
			return e.failRun(ctx, run, aerr)
		}
		lastAction = action
		e.publish(ctx, event.TypeActionComplete, run.ID, iteration, map[string]interface{}{
			"recordsProcessed": action.Metrics.RecordsProcessed,
			"recordsFailed":    action.Metrics.RecordsFailed,
		})

		reflection, rerr := e.reflect(ctx, iteration, action, perception)
		if rerr != nil {
			return e.failRun(ctx, run, rerr)
		}
		lastReflection = reflection
		improvements = append(improvements, reflection.Improvements...)
		e.publish(ctx, event.TypeReflectionComplete, run.ID, iteration, map[string]interface{}{
			"success":    reflection.Success,
			"retry":      reflection.Retry,
			"confidence": reflection.Confidence,
		})

		if reflection.Lesson != "" && e.p.Knowledge != nil {
			record := model.NewKnowledgeRecord(e.p.Pattern, reflection.Lesson)
			if kerr := e.p.Knowledge.AppendKnowledge(ctx, record); kerr != nil {
				return e.failRun(ctx, run, kerr)
			}
		}
		e.p.Recorder.RecordIteration(ctx, e.p.JobType, reflection.Success)

		if reflection.Success {
			e.publish(ctx, event.TypeIterationComplete, run.ID, iteration, map[string]interface{}{
				"success": true,
			})
			break
		}
		if !reflection.Retry {
			e.publish(ctx, event.TypeIterationComplete, run.ID, iteration, map[string]interface{}{
				"success": false,
			})
			break
		}
		lastAdjustment = reflection.Adjustment
		logger.Debugf("job %s run %s: iteration %d below retry threshold, adjusting and retrying",
			e.p.JobID, run.ID, iteration)
	}

	if lastAction == nil {
		return e.failRun(ctx, run, exception.NewEngineError(moduleName, exception.CodePARLoopFailed,
			"loop produced no action", nil))
	}

	run.PARIterations = iterations
	run.RecordsProcessed = lastAction.Metrics.RecordsProcessed
	run.RecordsFailed = lastAction.Metrics.RecordsFailed
	run.Errors = append(run.Errors, lastAction.Errors...)
	run.Improvements = append(run.Improvements, improvements...)

	success := lastReflection != nil && lastReflection.Success
	if success {
		run.MarkAsCompleted()
	} else {
		// Failed without retry: keep the last action's partial results and
		// finish as FAILED rather than discarding the work.
		run.MarkAsFailed()
	}

	if uerr := e.p.Runs.UpdateJobRun(ctx, run); uerr != nil {
		return e.failRun(ctx, run, uerr)
	}
	if terr := e.p.Tracker.MarkFinished(ctx, success); terr != nil {
		return e.failRun(ctx, run, terr)
	}
	e.p.Recorder.RecordRunEnd(ctx, e.p.JobType, run)

	if success {
		e.publish(ctx, event.TypeJobCompleted, run.ID, iterations-1, map[string]interface{}{
			"recordsProcessed": run.RecordsProcessed,
			"recordsFailed":    run.RecordsFailed,
			"iterations":       iterations,
		})
		logger.Infof("job %s run %s completed: %d processed, %d failed, %d iteration(s)",
			e.p.JobID, run.ID, run.RecordsProcessed, run.RecordsFailed, iterations)
	} else {
		e.publish(ctx, event.TypeJobFailed, run.ID, iterations-1, map[string]interface{}{
			"recordsProcessed": run.RecordsProcessed,
			"recordsFailed":    run.RecordsFailed,
			"iterations":       iterations,
			"error":            run.Result().FirstErrorMessage(),
		})
		logger.Warnf("job %s run %s failed: %d processed, %d failed, %d iteration(s)",
			e.p.JobID, run.ID, run.RecordsProcessed, run.RecordsFailed, iterations)
	}
	return run.Result(), nil
}

func (e *Engine[T, A]) perceive(ctx context.Context, iteration int, prev *A) (*Perception[T, A], error) {
	pctx, end := e.p.Tracer.StartPhaseSpan(ctx, "perceive", iteration)
	defer end()
	perception, err := e.worker.Perceive(pctx)
	if err != nil {
		e.p.Tracer.RecordError(pctx, moduleName, err)
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"perceive phase failed", err)
	}
	if perception == nil {
		perception = &Perception[T, A]{}
	}
	if perception.Context == nil {
		perception.Context = model.NewExecutionContext()
	}
	perception.Iteration = iteration
	perception.PreviousAdjustment = prev
	return perception, nil
}

func (e *Engine[T, A]) act(ctx context.Context, iteration int, p *Perception[T, A]) (*Action, error) {
	actx, end := e.p.Tracer.StartPhaseSpan(ctx, "act", iteration)
	defer end()
	action, err := e.worker.Act(actx, p)
	if err != nil {
		e.p.Tracer.RecordError(actx, moduleName, err)
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"act phase failed", err)
	}
	if action == nil {
		action = &Action{}
	}
	return action, nil
}

func (e *Engine[T, A]) reflect(ctx context.Context, iteration int, action *Action, p *Perception[T, A]) (*Reflection[A], error) {
	rctx, end := e.p.Tracer.StartPhaseSpan(ctx, "reflect", iteration)
	defer end()
	reflection, err := e.worker.Reflect(rctx, action, p)
	if err != nil {
		e.p.Tracer.RecordError(rctx, moduleName, err)
		return nil, exception.NewEngineError(moduleName, exception.CodeExecutionError,
			"reflect phase failed", err)
	}
	if reflection == nil {
		reflection = &Reflection[A]{}
	}
	return reflection, nil
}

// failRun finalizes the run as FAILED with a single execution-level error,
// persists the terminal state best-effort, and emits job_failed. The returned
// error is the classified EngineError for the caller.
func (e *Engine[T, A]) failRun(ctx context.Context, run *model.JobRun, cause error) (*model.JobRunResult, error) {
	var ee *exception.EngineError
	if !errors.As(cause, &ee) {
		ee = exception.NewEngineError(moduleName, exception.CodeExecutionError,
			exception.ExtractErrorMessage(cause), cause)
	}

	code := model.ErrCodeExecution
	if ee.Code == exception.CodePARLoopFailed {
		code = model.ErrCodePARLoop
	}
	run.Errors = append(run.Errors, model.NewETLError(code, ee.Message))
	run.MarkAsFailed()
	if run.PARIterations == 0 {
		run.PARIterations = 1
	}

	// The run may have failed before or during persistence; a second failure
	// here is logged, not raised, so the caller still gets the terminal state.
	if uerr := e.p.Runs.UpdateJobRun(ctx, run); uerr != nil {
		logger.Warnf("failed to persist terminal state of run %s: %v", run.ID, uerr)
	}
	if terr := e.p.Tracker.MarkFinished(ctx, false); terr != nil {
		logger.Warnf("failed to persist terminal job status for job %s: %v", e.p.JobID, terr)
	}
	e.p.Tracer.RecordError(ctx, moduleName, cause)
	e.p.Recorder.RecordRunEnd(ctx, e.p.JobType, run)
	e.publish(ctx, event.TypeJobFailed, run.ID, run.PARIterations-1, map[string]interface{}{
		"error": ee.Message,
	})
	logger.Errorf("job %s run %s aborted: %s", e.p.JobID, run.ID, ee.Message)
	return run.Result(), ee
}

func (e *Engine[T, A]) publish(ctx context.Context, t event.Type, runID string, iteration int, payload map[string]interface{}) {
	ev := event.New(t, runID, iteration, payload)
	ev.JobID = e.p.JobID
	e.p.Publisher.Publish(ctx, ev)
}

var _ Executor = (*Engine[any, any])(nil)
