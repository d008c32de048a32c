// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetIngestQueueName() string
	GetAnalysisQueueName() string
	GetWorkerConcurrency() int
	GetIngestRatePerSecond() float64
	GetAnalysisRatePerSecond() float64
	GetJobMaxAttempts() int
}

// RealtimeConfig provides settings for the realtime publisher.
type RealtimeConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// AIConfig provides settings for the classifier provider.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetClassifierModel() string
	IsClassifierEnabled() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// StatsConfig provides settings for the stats reconciliation job.
type StatsConfig interface {
	GetReconcileInterval() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RedisURL              string
	RedisTLSInsecure      bool
	IngestQueueName       string
	AnalysisQueueName     string
	WorkerConcurrency     int
	IngestRatePerSecond   float64
	AnalysisRatePerSecond float64
	JobMaxAttempts        int
	ReconcileInterval     time.Duration
	GeminiAPIKey          string
	ClassifierModel       string
	CORSAllowAll          bool
	CORSOrigins           []string
	IngestAPIKey          string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string               { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool         { return c.RedisTLSInsecure }
func (c *Config) GetIngestQueueName() string        { return c.IngestQueueName }
func (c *Config) GetAnalysisQueueName() string      { return c.AnalysisQueueName }
func (c *Config) GetWorkerConcurrency() int         { return c.WorkerConcurrency }
func (c *Config) GetIngestRatePerSecond() float64   { return c.IngestRatePerSecond }
func (c *Config) GetAnalysisRatePerSecond() float64 { return c.AnalysisRatePerSecond }
func (c *Config) GetJobMaxAttempts() int            { return c.JobMaxAttempts }

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string    { return c.GeminiAPIKey }
func (c *Config) GetClassifierModel() string { return c.ClassifierModel }
func (c *Config) IsClassifierEnabled() bool  { return c.GeminiAPIKey != "" }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// StatsConfig implementation
func (c *Config) GetReconcileInterval() time.Duration { return c.ReconcileInterval }

// GetIngestAPIKey returns the shared secret expected on webhook ingest calls.
func (c *Config) GetIngestAPIKey() string { return c.IngestAPIKey }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		IngestQueueName:       getEnv("INGEST_QUEUE", "ingest"),
		AnalysisQueueName:     getEnv("ANALYSIS_QUEUE", "analysis"),
		WorkerConcurrency:     mustInt(getEnv("WORKER_CONCURRENCY", "10")),
		IngestRatePerSecond:   mustFloat(getEnv("INGEST_RATE_PER_SECOND", "10")),
		AnalysisRatePerSecond: mustFloat(getEnv("ANALYSIS_RATE_PER_SECOND", "5")),
		JobMaxAttempts:        mustInt(getEnv("JOB_MAX_ATTEMPTS", "5")),
		ReconcileInterval:     mustDuration(getEnv("STATS_RECONCILE_INTERVAL", "10m")),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		ClassifierModel:       getEnv("CLASSIFIER_MODEL", "gemini-2.0-flash"),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		IngestAPIKey:          getEnv("INGEST_API_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if cfg.JobMaxAttempts < 1 {
		return nil, fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("STATS_RECONCILE_INTERVAL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
