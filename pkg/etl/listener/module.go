package listener

import (
	"go.uber.org/fx"

	event "github.com/tigerroll/undertow/pkg/etl/engine/event"
)

// NewDefaultTraceBuffer provides a trace buffer with the default capacity.
func NewDefaultTraceBuffer() *TraceBuffer {
	return NewTraceBuffer(DefaultTraceCapacity)
}

// Subscribe attaches the built-in listeners to the bus.
func Subscribe(bus *event.Bus, trace *TraceBuffer) {
	bus.Subscribe(NewLoggingListener())
	bus.Subscribe(trace)
}

// Module wires the built-in event listeners.
var Module = fx.Options(
	fx.Provide(NewDefaultTraceBuffer),
	fx.Invoke(Subscribe),
)
