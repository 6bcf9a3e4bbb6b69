package config

import (
	"time"

	"github.com/inboxkeep/mailclerk/internal/logger"
)

type AppConfig struct {
	DatabasePath string `env:"MAILCLERK_DB_PATH" envDefault:"mailclerk.db"`
	Logger       *logger.Config
}

type IMAPConfig struct {
	Host string `env:"IMAP_HOST" envDefault:"imap.gmail.com"`
	Port int    `env:"IMAP_PORT" envDefault:"993"`
}

type SessionConfig struct {
	MaxRetries         int           `env:"SESSION_MAX_RETRIES" envDefault:"5"`
	BackoffBase        time.Duration `env:"SESSION_BACKOFF_BASE" envDefault:"2s"`
	BackoffCap         time.Duration `env:"SESSION_BACKOFF_CAP" envDefault:"15s"`
	StaleTimeout       time.Duration `env:"SESSION_STALE_TIMEOUT" envDefault:"25m"`
	ReaperInterval     time.Duration `env:"SESSION_REAPER_INTERVAL" envDefault:"5m"`
	MaxSessionsPerUser int           `env:"SESSION_MAX_PER_ACCOUNT" envDefault:"5"`
}

type RateLimitConfig struct {
	FailureWindow time.Duration `env:"RATE_LIMIT_FAILURE_WINDOW" envDefault:"15m"`
	MaxFailures   int           `env:"RATE_LIMIT_MAX_FAILURES" envDefault:"5"`
}

type FetchConfig struct {
	FolderCacheTTL   time.Duration `env:"FETCH_FOLDER_CACHE_TTL" envDefault:"10m"`
	FolderCacheSize  int           `env:"FETCH_FOLDER_CACHE_SIZE" envDefault:"128"`
	MaxBodySize      int           `env:"FETCH_MAX_BODY_SIZE" envDefault:"100000"`
	DefaultBatchSize int           `env:"FETCH_DEFAULT_BATCH_SIZE" envDefault:"50"`
}
