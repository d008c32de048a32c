// Package events is the in-process event bus the pipeline stages publish
// through. It lives in the platform layer so ingestion, analysis, and the
// realtime fanout can talk without importing each other.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event. EventName keys handler
// registration on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp half of Event; concrete events embed it
// and add their own EventName.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a fresh event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one subscribed name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans published events out to the handlers subscribed under the
// event's name. Publish dispatches asynchronously; PublishSync waits for
// every handler and returns the first error.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
