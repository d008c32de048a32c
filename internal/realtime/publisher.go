// Package realtime pushes committed pipeline outcomes to Redis PubSub so
// connected dashboards update without polling.
package realtime

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"engage_backend/platform/config"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GlobalChannel receives cross-tenant pipeline notifications.
const GlobalChannel = "events"

// Publisher publishes realtime payloads. A nil Publisher is a safe no-op so
// deployments without Redis wiring still run.
type Publisher struct {
	rdb *redis.Client
	log *logger.Logger
}

// NewPublisher connects a realtime publisher. Returns nil when no Redis URL
// is configured.
func NewPublisher(cfg config.RealtimeConfig, log *logger.Logger) (*Publisher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	return &Publisher{rdb: redis.NewClient(opt), log: log}, nil
}

func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

// TenantChannel names the per-tenant PubSub channel.
func TenantChannel(tenantID uuid.UUID) string {
	return fmt.Sprintf("tenant:%s:events", tenantID)
}

// PublishIngestionComplete announces a committed batch on the global channel.
func (p *Publisher) PublishIngestionComplete(ctx context.Context, tenantID uuid.UUID, newInteractions int) error {
	return p.publish(ctx, GlobalChannel, map[string]any{
		"type":            "ingestion_complete",
		"tenantId":        tenantID,
		"newInteractions": newInteractions,
	})
}

// PublishInteractionAnalyzed delivers a classifier verdict to the tenant's
// channel.
func (p *Publisher) PublishInteractionAnalyzed(ctx context.Context, tenantID uuid.UUID, payload any) error {
	return p.publish(ctx, TenantChannel(tenantID), payload)
}

func (p *Publisher) publish(ctx context.Context, channel string, payload any) error {
	if p == nil || p.rdb == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, channel, data).Err()
}
