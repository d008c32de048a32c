package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"engage_backend/internal/analysis"
	"engage_backend/internal/events"
	"engage_backend/internal/ingestion"
	"engage_backend/internal/realtime"
	"engage_backend/internal/scheduler"
	"engage_backend/internal/scoring"
	"engage_backend/internal/stats"
	"engage_backend/platform/ai/classifier"
	"engage_backend/platform/config"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg, os.Getenv("MIGRATIONS_DIR")); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)

	publisher, err := realtime.NewPublisher(cfg, log)
	if err != nil {
		log.Error("failed to initialize realtime publisher", "error", err)
		panic("failed to initialize realtime publisher: " + err.Error())
	}
	defer func() { _ = publisher.Close() }()
	realtime.RegisterHandlers(eventBus, publisher, log)

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	statsRepo := stats.New(pool)
	reconciler := stats.NewReconciler(statsRepo, log)

	ingestionModule := ingestion.NewModule(pool, statsRepo, queue, eventBus, log)

	classifierClient, err := classifier.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize classifier", "error", err)
		panic("failed to initialize classifier: " + err.Error())
	}
	if classifierClient == nil {
		log.Warn("classifier disabled: no api key configured")
	}

	scorer := scoring.New(scoring.NewRepository(), log)
	analysisSvc := analysis.New(analysis.NewRepository(pool), classifierService(classifierClient), scorer, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, cfg, ingestionModule.Service(), analysisSvc, reconciler, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
}

// classifierService keeps a disabled classifier as a typed nil interface the
// analysis service can check.
func classifierService(client *classifier.Client) analysis.Classifier {
	if client == nil {
		return nil
	}
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseDelay * time.Duration(attempt)):
			}
		}
	}

	return lastErr
}
