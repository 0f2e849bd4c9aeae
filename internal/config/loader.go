package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from (in ascending priority) defaults, an
// optional config.yaml, real environment variables prefixed WEBHOOKD_, and
// an optional .env file. Values from .env are applied as explicit overrides,
// so they win over WEBHOOKD_ environment variables for the same key.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/webhookd/")

	v.SetEnvPrefix("WEBHOOKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	intervals, err := parseRetryIntervals(v.GetString("delivery.retry_intervals"))
	if err != nil {
		return nil, fmt.Errorf("parse delivery.retry_intervals: %w", err)
	}
	cfg.Delivery.RetryIntervals = intervals

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/webhookd.db")

	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "webhookd")
	v.SetDefault("auth.audience", "webhookd-admin")
	v.SetDefault("auth.leeway", "30s")

	v.SetDefault("queue.capacity", 1000)
	v.SetDefault("queue.worker_count", 10)

	v.SetDefault("delivery.request_timeout", "10s")
	v.SetDefault("delivery.retry_intervals", "10s,30s,60s")

	v.SetDefault("cache.subscription_ttl", "300s")

	v.SetDefault("retention.log_retention", "72h")
	v.SetDefault("retention.cleanup_interval", "1h")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "webhookd")
	v.SetDefault("metrics.subsystem", "http")
}

// parseRetryIntervals turns a comma-separated duration list ("10s,30s,60s")
// into the back-off schedule the delivery worker pool walks. An empty
// string yields a nil (single-attempt, no-retry) schedule.
func parseRetryIntervals(raw string) ([]time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", p, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", "..", "../.."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}

		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv maps flat env var names (WORKER_COUNT, REQUEST_TIMEOUT,
// DB_PATH, ...) onto the hierarchical config keys, so a plain ".env"
// works without the WEBHOOKD_ prefix or nesting.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":             "http.addr",
		"SHUTDOWN_TIMEOUT":      "http.shutdown_timeout",
		"LOG_LEVEL":             "log.level",
		"LOG_FORMAT":            "log.format",
		"LOG_ADD_SOURCE":        "log.add_source",
		"ENV":                   "log.environment",
		"APP_ENV":               "log.environment",
		"DB_PATH":               "database.path",
		"AUTH_SIGNING_KEY":      "auth.signing_key",
		"AUTH_TOKEN_TTL":        "auth.token_ttl",
		"AUTH_ISSUER":           "auth.issuer",
		"AUTH_AUDIENCE":         "auth.audience",
		"AUTH_LEEWAY":           "auth.leeway",
		"QUEUE_CAPACITY":        "queue.capacity",
		"WORKER_COUNT":          "queue.worker_count",
		"REQUEST_TIMEOUT":       "delivery.request_timeout",
		"RETRY_INTERVALS":       "delivery.retry_intervals",
		"CACHE_EXPIRY_SECONDS":  "cache.subscription_ttl",
		"LOG_RETENTION":         "retention.log_retention",
		"LOG_CLEANUP_INTERVAL":  "retention.cleanup_interval",
		"METRICS_TOKEN":         "metrics.token",
	}

	for oldKey, newKey := range mappings {
		val := source.GetString(oldKey)
		if val == "" {
			continue
		}
		// CACHE_EXPIRY_SECONDS is a bare second count; the config key is a
		// duration.
		if oldKey == "CACHE_EXPIRY_SECONDS" && isDigits(val) {
			val += "s"
		}
		target.Set(newKey, val)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
