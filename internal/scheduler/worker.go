package scheduler

import (
	"context"
	"fmt"

	"engage_backend/internal/analysis"
	ingestionsvc "engage_backend/internal/ingestion/service"
	"engage_backend/internal/ingestion/transport"
	"engage_backend/internal/stats"
	"engage_backend/platform/apperr"
	"engage_backend/platform/config"
	"engage_backend/platform/logger"
	"engage_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
)

// Worker consumes pipeline jobs: ingestion batches, per-interaction analysis,
// and the periodic stats reconcile.
type Worker struct {
	server        *asynq.Server
	scheduler     *asynq.Scheduler
	mux           *asynq.ServeMux
	ingest        *ingestionsvc.Service
	analysis      *analysis.Service
	reconciler    *stats.Reconciler
	val           *validator.Validator
	ingestLimit   *rate.Limiter
	analysisLimit *rate.Limiter
	log           *logger.Logger
}

func NewWorker(
	cfg config.SchedulerConfig,
	reconcileCfg config.StatsConfig,
	ingest *ingestionsvc.Service,
	analysisSvc *analysis.Service,
	reconciler *stats.Reconciler,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	ingestQueue := queueOrDefault(cfg.GetIngestQueueName(), "ingest")
	analysisQueue := queueOrDefault(cfg.GetAnalysisQueueName(), "analysis")

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			ingestQueue:   3,
			analysisQueue: 2,
			"default":     1,
		},
		IsFailure: func(err error) bool {
			// Rate-limit backoff is expected load shedding, not a failure.
			return !apperr.IsRetryable(err)
		},
	})

	periodic := asynq.NewScheduler(opt, nil)
	interval := reconcileCfg.GetReconcileInterval()
	if _, err := periodic.Register(fmt.Sprintf("@every %s", interval), NewStatsReconcileTask()); err != nil {
		return nil, err
	}

	w := &Worker{
		server:        server,
		scheduler:     periodic,
		mux:           asynq.NewServeMux(),
		ingest:        ingest,
		analysis:      analysisSvc,
		reconciler:    reconciler,
		val:           validator.New(),
		ingestLimit:   rate.NewLimiter(rate.Limit(cfg.GetIngestRatePerSecond()), 1),
		analysisLimit: rate.NewLimiter(rate.Limit(cfg.GetAnalysisRatePerSecond()), 1),
		log:           log,
	}

	w.mux.HandleFunc(TaskIngestBatch, w.handleIngestBatch)
	w.mux.HandleFunc(TaskAnalyzeInteraction, w.handleAnalyzeInteraction)
	w.mux.HandleFunc(TaskStatsReconcile, w.handleStatsReconcile)

	return w, nil
}

// Run serves jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("periodic scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("worker stopped", "error", err)
	}
}

func (w *Worker) handleIngestBatch(ctx context.Context, task *asynq.Task) error {
	if err := w.ingestLimit.Wait(ctx); err != nil {
		return err
	}

	payload, err := ParseIngestBatchPayload(task)
	if err != nil {
		return fmt.Errorf("malformed ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.val.Struct(payload.Batch); err != nil {
		return fmt.Errorf("invalid ingest batch: %v: %w", err, asynq.SkipRetry)
	}

	batch, err := transport.ToBatch(payload.Batch)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	_, err = w.ingest.IngestBatch(ctx, batch)
	return skipIfNotRetryable(err)
}

func (w *Worker) handleAnalyzeInteraction(ctx context.Context, task *asynq.Task) error {
	if err := w.analysisLimit.Wait(ctx); err != nil {
		return err
	}

	payload, err := ParseAnalyzeInteractionPayload(task)
	if err != nil {
		return fmt.Errorf("malformed analysis payload: %v: %w", err, asynq.SkipRetry)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant id: %v: %w", err, asynq.SkipRetry)
	}

	interactionID, err := uuid.Parse(payload.InteractionID)
	if err != nil {
		return fmt.Errorf("invalid interaction id: %v: %w", err, asynq.SkipRetry)
	}

	return skipIfNotRetryable(w.analysis.AnalyzeInteraction(ctx, tenantID, interactionID))
}

func (w *Worker) handleStatsReconcile(ctx context.Context, task *asynq.Task) error {
	return w.reconciler.ReconcileAll(ctx)
}

// skipIfNotRetryable keeps transient errors retryable and marks domain
// rejections terminal so a bad batch does not loop through the queue.
func skipIfNotRetryable(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.GetKind(err) {
	case apperr.KindValidation, apperr.KindBadRequest, apperr.KindNotFound:
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
