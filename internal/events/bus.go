package events

import (
	platformevents "zoning_portal_backend/platform/events"
	"zoning_portal_backend/platform/logger"
)

// InMemoryBus is the process-local bus the permit workflow publishes on.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a bus with no subscribers.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// WorkflowEvents lists every event the permit workflow publishes, in lifecycle order.
func WorkflowEvents() []Event {
	return []Event{
		RequestSubmitted{},
		ApplicationApproved{},
		ApplicationRejected{},
		PaymentSubmitted{},
		PaymentVerified{},
		PaymentRejected{},
		CertificateIssued{},
	}
}

// SubscribeAll registers handler for every workflow event.
func SubscribeAll(bus Bus, handler Handler) {
	for _, e := range WorkflowEvents() {
		bus.Subscribe(e.EventName(), handler)
	}
}
