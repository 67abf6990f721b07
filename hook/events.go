package hook

import "github.com/tailored-agentic-units/phf/observability"

// Hook event types.
const (
	EventHookStart     observability.EventType = "hook.start"
	EventHookStop      observability.EventType = "hook.stop"
	EventHookFailed    observability.EventType = "hook.failed"
	EventHookProcessed observability.EventType = "hook.processed"
)
