package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdirT(t *testing.T, dir string) {
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdirT(t, t.TempDir()) // no config.yaml or .env in sight

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	require.Equal(t, 10, cfg.Queue.WorkerCount)
	require.Equal(t, 1000, cfg.Queue.Capacity)
	require.Equal(t, 10*time.Second, cfg.Delivery.RequestTimeout)
	require.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}, cfg.Delivery.RetryIntervals)
	require.Equal(t, 5*time.Minute, cfg.Cache.SubscriptionTTL)
	require.Equal(t, 72*time.Hour, cfg.Retention.LogRetention)
	require.Equal(t, time.Hour, cfg.Retention.CleanupInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirT(t, t.TempDir())
	t.Setenv("WEBHOOKD_QUEUE_WORKER_COUNT", "3")
	t.Setenv("WEBHOOKD_DELIVERY_RETRY_INTERVALS", "1s,2s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Queue.WorkerCount)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, cfg.Delivery.RetryIntervals)
}

func TestParseRetryIntervals(t *testing.T) {
	got, err := parseRetryIntervals("10s, 30s ,60s")
	require.NoError(t, err)
	require.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}, got)

	got, err = parseRetryIntervals("")
	require.NoError(t, err)
	require.Nil(t, got, "an empty schedule means a single attempt with no retries")

	_, err = parseRetryIntervals("10s,banana")
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	require.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	require.Equal(t, "WARN", LogConfig{Level: "warning"}.SlogLevel().String())
	require.Equal(t, "ERROR", LogConfig{Level: "error"}.SlogLevel().String())
	require.Equal(t, "INFO", LogConfig{Level: ""}.SlogLevel().String())
}
