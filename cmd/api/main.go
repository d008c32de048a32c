package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"engage_backend/internal/ingestion/transport"
	"engage_backend/internal/scheduler"
	"engage_backend/platform/config"
	"engage_backend/platform/httpkit"
	"engage_backend/platform/logger"
	"engage_backend/platform/validator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpkit.RequestLogger(log))
	router.Use(httpkit.SecurityHeaders())
	router.Use(corsMiddleware(cfg))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	val := validator.New()
	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.IngestRatePerSecond), int(cfg.IngestRatePerSecond)+1, log)

	v1 := router.Group("/api/v1")
	webhook := v1.Group("/webhook")
	webhook.Use(httpkit.APIKeyAuth(cfg.GetIngestAPIKey()))
	webhook.Use(limiter.RateLimit())
	webhook.POST("/ingest", handleIngest(queue, val))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		panic("server stopped: " + err.Error())
	}
}

// handleIngest accepts a normalized batch, validates it at the boundary, and
// hands it to the ingestion queue. The pipeline itself runs in the worker.
func handleIngest(queue *scheduler.Client, val *validator.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.IngestBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		if err := val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid batch", err.Error())
			return
		}

		if err := queue.EnqueueIngestBatch(c.Request.Context(), req); err != nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "failed to enqueue batch", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status": "queued",
			"posts":  len(req.Posts),
			"events": len(req.Events),
		})
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Api-Key")
	return cors.New(corsConfig)
}
