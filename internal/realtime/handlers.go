package realtime

import (
	"context"

	"engage_backend/internal/events"
	"engage_backend/platform/logger"
)

// RegisterHandlers subscribes the publisher to the domain events it fans out.
// Failed publishes are logged; the pipeline never depends on PubSub delivery.
func RegisterHandlers(bus events.Bus, pub *Publisher, log *logger.Logger) {
	bus.Subscribe(events.IngestionCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		completed, ok := event.(events.IngestionCompleted)
		if !ok {
			return nil
		}
		if err := pub.PublishIngestionComplete(ctx, completed.TenantID, completed.NewInteractions); err != nil {
			log.Error("realtime publish failed", "event", event.EventName(), "error", err)
		}
		return nil
	}))

	bus.Subscribe(events.InteractionAnalyzed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		analyzed, ok := event.(events.InteractionAnalyzed)
		if !ok {
			return nil
		}
		if err := pub.PublishInteractionAnalyzed(ctx, analyzed.TenantID, analyzed); err != nil {
			log.Error("realtime publish failed", "event", event.EventName(), "error", err)
		}
		return nil
	}))
}
