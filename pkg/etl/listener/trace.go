package listener

import (
	"context"
	"sync"

	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
)

// DefaultTraceCapacity bounds the number of runs retained by a TraceBuffer.
const DefaultTraceCapacity = 256

// TraceBuffer retains each run's ordered event sequence in memory for
// inspection by an observability surface. When the capacity is exceeded the
// oldest run's trace is evicted. The bus itself carries no history; this
// listener is the component that chooses to keep some.
type TraceBuffer struct {
	mu       sync.Mutex
	capacity int
	order    []string
	traces   map[string][]event.Event
}

// NewTraceBuffer creates a buffer retaining up to capacity runs.
func NewTraceBuffer(capacity int) *TraceBuffer {
	if capacity <= 0 {
		capacity = DefaultTraceCapacity
	}
	return &TraceBuffer{
		capacity: capacity,
		traces:   make(map[string][]event.Event),
	}
}

// Handle implements event.Handler.
func (b *TraceBuffer) Handle(ctx context.Context, ev event.Event) {
	if ev.RunID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, known := b.traces[ev.RunID]; !known {
		if len(b.order) >= b.capacity {
			oldest := b.order[0]
			b.order = b.order[1:]
			delete(b.traces, oldest)
		}
		b.order = append(b.order, ev.RunID)
	}
	b.traces[ev.RunID] = append(b.traces[ev.RunID], ev)
}

// Trace returns the ordered events recorded for a run.
func (b *TraceBuffer) Trace(runID string) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Event(nil), b.traces[runID]...)
}

var _ event.Handler = (*TraceBuffer)(nil)
