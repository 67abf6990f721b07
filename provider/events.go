package provider

import "github.com/tailored-agentic-units/phf/observability"

// Provider event types.
const (
	EventProviderStart  observability.EventType = "provider.start"
	EventProviderStop   observability.EventType = "provider.stop"
	EventProviderFailed observability.EventType = "provider.failed"
	EventProviderCycle  observability.EventType = "provider.cycle"
	EventHookAttached   observability.EventType = "provider.hook.attached"
)
