package orchestrator

// Event names published by the orchestrator.
const (
	EventStart      = "instance_start"
	EventReady      = "instance_ready"
	EventExit       = "instance_exit"
	EventError      = "instance_error"
	EventStop       = "instance_stop"
	EventStopForced = "stop_forced"
	EventRemoved    = "instance_removed"
)

// Event represents an instance lifecycle event.
// Minimal and stable: name + preset ID and optional fields via key/values.
type Event struct {
	Name     string
	PresetID string
	Fields   map[string]any
}

// EventPublisher receives events from the orchestrator. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
