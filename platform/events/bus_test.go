package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"engage_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	Value int
}

func (e testEvent) EventName() string { return "test.event" }

func TestPublishSyncDeliversInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var got []int
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		got = append(got, event.(testEvent).Value)
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		got = append(got, event.(testEvent).Value*10)
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), Value: 7}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}
	if len(got) != 2 || got[0] != 7 || got[1] != 70 {
		t.Fatalf("unexpected delivery %v", got)
	}
}

func TestPublishSyncReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	sentinel := errors.New("handler failed")

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return sentinel
	}))
	second := false
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		second = true
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if second {
		t.Fatal("second handler must not run after a failure")
	}
}

func TestPublishIsAsynchronous(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		defer wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestPublishRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		defer wg.Done()
		panic("boom")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		defer wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking handler must not block the others")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("publishing without subscribers must not fail: %v", err)
	}
}
