package event

import (
	"context"
	"sync"

	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Publisher is the write side of the event stream. The engine emits through a
// Publisher so callers can interpose tagging or filtering.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Handler consumes events. Handlers are invoked synchronously in registration
// order; a panicking handler is recovered and logged so observers can never
// abort a run.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev Event)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Bus fans events out to registered handlers. Publish is safe for concurrent
// use by multiple runs; the per-run ordering guarantee follows from each run
// publishing its own events sequentially.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Handlers receive events in registration order.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// SubscribeFunc registers a handler function.
func (b *Bus) SubscribeFunc(fn func(ctx context.Context, ev Event)) {
	b.Subscribe(HandlerFunc(fn))
}

// Publish dispatches the event to every handler synchronously.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		dispatch(ctx, h, ev)
	}
}

func dispatch(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Event handler panicked on %s (run %s): %v", ev.Type, ev.RunID, r)
		}
	}()
	h.Handle(ctx, ev)
}

var _ Publisher = (*Bus)(nil)

// taggedPublisher stamps every published event with a job ID before
// forwarding it. The orchestrator uses it to re-tag engine events.
type taggedPublisher struct {
	next  Publisher
	jobID string
}

// Tagged wraps a publisher so every event it forwards carries the job ID.
func Tagged(next Publisher, jobID string) Publisher {
	return &taggedPublisher{next: next, jobID: jobID}
}

func (p *taggedPublisher) Publish(ctx context.Context, ev Event) {
	ev.JobID = p.jobID
	p.next.Publish(ctx, ev)
}

// NopPublisher discards all events. Useful for tests and direct engine use
// without observers.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) {}
