package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"engage_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type testConfig struct {
	url string
}

func (c testConfig) GetRedisURL() string       { return c.url }
func (c testConfig) GetRedisTLSInsecure() bool { return false }

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher
	if err := pub.PublishIngestionComplete(context.Background(), uuid.New(), 3); err != nil {
		t.Fatalf("nil publisher must be a no-op, got %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("nil publisher close must be a no-op, got %v", err)
	}
}

func TestNewPublisherWithoutRedisURL(t *testing.T) {
	pub, err := NewPublisher(testConfig{}, logger.New("development"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub != nil {
		t.Fatal("expected nil publisher without redis url")
	}
}

func TestPublishIngestionComplete(t *testing.T) {
	srv := miniredis.RunT(t)
	pub, err := NewPublisher(testConfig{url: "redis://" + srv.Addr()}, logger.New("development"))
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	sub := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer sub.Close()

	ctx := context.Background()
	pubsub := sub.Subscribe(ctx, GlobalChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	tenantID := uuid.New()
	if err := pub.PublishIngestionComplete(ctx, tenantID, 5); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-pubsub.Channel():
		var payload map[string]any
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			t.Fatalf("payload is not json: %v", err)
		}
		if payload["type"] != "ingestion_complete" {
			t.Fatalf("unexpected payload type %v", payload["type"])
		}
		if payload["tenantId"] != tenantID.String() {
			t.Fatalf("unexpected tenant %v", payload["tenantId"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPublishInteractionAnalyzedUsesTenantChannel(t *testing.T) {
	srv := miniredis.RunT(t)
	pub, err := NewPublisher(testConfig{url: "redis://" + srv.Addr()}, logger.New("development"))
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	sub := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer sub.Close()

	tenantID := uuid.New()
	ctx := context.Background()
	pubsub := sub.Subscribe(ctx, TenantChannel(tenantID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	if err := pub.PublishInteractionAnalyzed(ctx, tenantID, map[string]string{"intent": "purchase"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-pubsub.Channel():
		if msg.Channel != TenantChannel(tenantID) {
			t.Fatalf("delivered on %s", msg.Channel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
