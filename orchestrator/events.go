package orchestrator

import "github.com/tailored-agentic-units/phf/observability"

// Orchestrator event types.
const (
	EventOrchestratorStart  observability.EventType = "orchestrator.start"
	EventOrchestratorStop   observability.EventType = "orchestrator.stop"
	EventOrchestratorFailed observability.EventType = "orchestrator.failed"
	EventCommandApplied     observability.EventType = "command.applied"
	EventSourceStart        observability.EventType = "source.start"
	EventSourceStop         observability.EventType = "source.stop"
	EventSourceFailed       observability.EventType = "source.failed"
)
