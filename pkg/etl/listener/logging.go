// Package listener provides the built-in event stream observers: structured
// run logging and a bounded in-memory trace buffer for inspection.
package listener

import (
	"context"

	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// LoggingListener logs every lifecycle event at a level matching its weight.
type LoggingListener struct{}

// NewLoggingListener creates the listener.
func NewLoggingListener() *LoggingListener {
	return &LoggingListener{}
}

// Handle implements event.Handler.
func (l *LoggingListener) Handle(ctx context.Context, ev event.Event) {
	switch ev.Type {
	case event.TypeJobStarted:
		logger.Infof("event: job %s run %s started", ev.JobID, ev.RunID)
	case event.TypeJobCompleted:
		logger.Infof("event: job %s run %s completed (payload: %v)", ev.JobID, ev.RunID, ev.Payload)
	case event.TypeJobFailed:
		logger.Warnf("event: job %s run %s failed (payload: %v)", ev.JobID, ev.RunID, ev.Payload)
	default:
		logger.Debugf("event: job %s run %s %s iteration %d", ev.JobID, ev.RunID, ev.Type, ev.Iteration)
	}
}

var _ event.Handler = (*LoggingListener)(nil)
