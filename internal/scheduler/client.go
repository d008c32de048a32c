package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"engage_backend/internal/ingestion/transport"
	"engage_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues pipeline jobs. It satisfies the ingestion service's
// AnalysisEnqueuer port.
type Client struct {
	client        *asynq.Client
	ingestQueue   string
	analysisQueue string
	maxAttempts   int
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client:        asynq.NewClient(opt),
		ingestQueue:   queueOrDefault(cfg.GetIngestQueueName(), "ingest"),
		analysisQueue: queueOrDefault(cfg.GetAnalysisQueueName(), "analysis"),
		maxAttempts:   cfg.GetJobMaxAttempts(),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueIngestBatch schedules one normalized batch for processing.
func (c *Client) EnqueueIngestBatch(ctx context.Context, req transport.IngestBatchRequest) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	task, err := NewIngestBatchTask(IngestBatchPayload{Batch: req})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.ingestQueue), asynq.MaxRetry(c.maxAttempts))
	return err
}

// EnqueueAnalysis schedules classification of one committed interaction.
func (c *Client) EnqueueAnalysis(ctx context.Context, tenantID, interactionID uuid.UUID) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not configured")
	}

	task, err := NewAnalyzeInteractionTask(AnalyzeInteractionPayload{
		TenantID:      tenantID.String(),
		InteractionID: interactionID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.analysisQueue), asynq.MaxRetry(c.maxAttempts))
	return err
}

func queueOrDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
