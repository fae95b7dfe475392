// Package events is the in-process publish/subscribe layer. Domain event
// types live with the modules that publish them.
package events

import (
	"context"
	"time"
)

// Event is anything published on a Bus. EventName must be stable since
// handlers subscribe by name.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the publish timestamp. Embed it in concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// NewBaseEventAt stamps the event with at, normally the service clock.
func NewBaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe to a Bus.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed to their name.
type Bus interface {
	// Publish runs handlers in the background and returns immediately.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in subscription order and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
	// HasHandlers reports whether anything is subscribed to eventName.
	HasHandlers(eventName string) bool
}
