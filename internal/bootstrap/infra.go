// Package bootstrap wires the process-wide infrastructure pieces (database,
// cache, auth, HTTP server) that cmd/webhookd assembles at boot.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/webhookd/webhookd/internal/async"
	"github.com/webhookd/webhookd/internal/auth/token"
	"github.com/webhookd/webhookd/internal/cache"
	"github.com/webhookd/webhookd/internal/config"
	"github.com/webhookd/webhookd/internal/notifier"
	"github.com/webhookd/webhookd/internal/security"
)

// Infrastructure bundles the shared, side-effecting helpers that the
// subscription service, ingest handler, and delivery worker pool all need.
type Infrastructure struct {
	Cache         cache.Store
	Token         *token.Manager
	AlertQueue    *async.AlertQueue
	Notifier      notifier.Service
	IngestLimiter *security.RateLimiter
	Audit         security.Recorder
}

// BuildInfrastructure wires the default implementations for cache, admin
// token issuance, ops alert delivery, and ingest rate limiting. The signing
// key in cfg must already be resolved (see ResolveSigningKey).
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "webhookd",
		DefaultTTL:      cfg.Cache.SubscriptionTTL,
		CleanupInterval: time.Minute,
	})

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	rateLimiter, err := security.NewRateLimiter(cacheStore)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	alertQueue := async.NewAlertQueue()

	return &Infrastructure{
		Cache:         cacheStore,
		Token:         tokenManager,
		AlertQueue:    alertQueue,
		Notifier:      async.NewQueueNotifier(alertQueue),
		IngestLimiter: rateLimiter,
		Audit:         security.NewLoggerRecorder(logger),
	}, nil
}
