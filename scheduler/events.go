package scheduler

import "github.com/tailored-agentic-units/phf/observability"

// Scheduler event types.
const (
	EventTaskStart  observability.EventType = "task.start"
	EventTaskStop   observability.EventType = "task.stop"
	EventTaskFailed observability.EventType = "task.failed"
)
