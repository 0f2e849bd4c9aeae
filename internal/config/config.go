package config

import (
	"log/slog"
	"time"
)

// Config aggregates every setting the service needs at boot.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Retention RetentionConfig `mapstructure:"retention"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// MetricsConfig defines Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// HTTPConfig defines the HTTP server's listen address and shutdown budget.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines structured logging output.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig defines the SQLite database file.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// AuthConfig defines the JWT bearer-token guard protecting the management
// API (subscription CRUD and status endpoints).
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

// QueueConfig sizes the bounded handoff queue and the worker pool that
// drains it.
type QueueConfig struct {
	Capacity    int `mapstructure:"capacity"`
	WorkerCount int `mapstructure:"worker_count"`
}

// DeliveryConfig controls the per-attempt HTTP timeout and the fixed
// back-off schedule between retries.
type DeliveryConfig struct {
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	RetryIntervals []time.Duration `mapstructure:"retry_intervals"`
}

// CacheConfig controls the subscription read-through cache's entry TTL.
type CacheConfig struct {
	SubscriptionTTL time.Duration `mapstructure:"subscription_ttl"`
}

// RetentionConfig controls the delivery-log garbage collector.
type RetentionConfig struct {
	LogRetention    time.Duration `mapstructure:"log_retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
