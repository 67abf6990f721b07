package messaging

import "github.com/tailored-agentic-units/phf/observability"

// Message system event types.
const (
	EventSystemStart     observability.EventType = "messaging.start"
	EventSystemStop      observability.EventType = "messaging.stop"
	EventMessageSent     observability.EventType = "message.sent"
	EventMessageResolved observability.EventType = "message.resolved"
)
