package events

// Event represents a structured state change emitted by the registry.
type Event interface {
	EventType() string
	// Attributes returns the event payload as flat string pairs for
	// downstream consumers (RPC subscribers, indexers, logs).
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wherever event emission is optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
