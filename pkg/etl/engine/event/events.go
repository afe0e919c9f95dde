// Package event provides the lifecycle event stream emitted by the
// perceive/act/reflect engine. Events form an ordered sequence per run and are
// dispatched synchronously to handlers in registration order. The bus carries
// no persistence obligation beyond the run's lifetime; observers that need
// history persist it themselves.
package event

import (
	"time"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeJobStarted         Type = "job_started"
	TypePerceptionComplete Type = "perception_complete"
	TypeActionComplete     Type = "action_complete"
	TypeReflectionComplete Type = "reflection_complete"
	TypeIterationComplete  Type = "iteration_complete"
	TypeJobCompleted       Type = "job_completed"
	TypeJobFailed          Type = "job_failed"
)

// Event is one entry in a run's ordered lifecycle stream.
type Event struct {
	Type      Type
	JobID     string
	RunID     string
	Iteration int
	Timestamp time.Time
	// Payload carries event-specific details (metrics, success flags, error summaries).
	Payload map[string]interface{}
}

// New creates an event stamped with the current time.
func New(t Type, runID string, iteration int, payload map[string]interface{}) Event {
	return Event{
		Type:      t,
		RunID:     runID,
		Iteration: iteration,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
