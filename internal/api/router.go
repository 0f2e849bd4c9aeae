package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webhookd/webhookd/internal/api/handler"
	"github.com/webhookd/webhookd/internal/api/middleware"
	"github.com/webhookd/webhookd/internal/auth/token"
	"github.com/webhookd/webhookd/internal/config"
	"github.com/webhookd/webhookd/internal/delivery"
	"github.com/webhookd/webhookd/internal/security"
	"github.com/webhookd/webhookd/internal/service"
)

// Services bundles everything the HTTP handlers need.
type Services struct {
	Subscriptions *service.SubscriptionService
	DeliveryLogs  *service.DeliveryLogService
	Pool          *delivery.Pool
	IngestLimiter *security.RateLimiter
	Audit         security.Recorder
	Admin         *token.Manager
}

var skipPaths = []string{"/health", "/healthz", "/_internal/ready", "/metrics"}

// NewRouter assembles the webhookd HTTP surface: public ingest, bearer-token
// guarded management API, and unauthenticated health/metrics endpoints.
func NewRouter(logger *slog.Logger, services Services, metricsCfg config.MetricsConfig) http.Handler {
	if services.Subscriptions == nil {
		panic("router requires SubscriptionService")
	}
	if services.DeliveryLogs == nil {
		panic("router requires DeliveryLogService")
	}
	if services.Pool == nil {
		panic("router requires delivery Pool")
	}
	if services.Admin == nil {
		panic("router requires admin token Manager")
	}

	r := chi.NewRouter()

	mCfg := middleware.DefaultMetricsConfig()
	if metricsCfg.Namespace != "" {
		mCfg.Namespace = metricsCfg.Namespace
	}
	if metricsCfg.Subsystem != "" {
		mCfg.Subsystem = metricsCfg.Subsystem
	}
	if len(metricsCfg.Buckets) > 0 {
		mCfg.Buckets = metricsCfg.Buckets
	}

	var metrics *middleware.Metrics
	if metricsCfg.Enabled {
		metrics = middleware.NewMetrics(mCfg)
	}

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	if metricsCfg.Enabled {
		r.Use(metrics.Middleware(mCfg))
	}

	r.Use(
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(middleware.DefaultBodyLimitConfig()),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:   services.IngestLimiter,
			Limit:     100,
			Window:    time.Minute,
			SkipPaths: skipPaths,
		}),
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     skipPaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
	)

	r.Get("/healthz", healthHandler)
	r.Get("/health", healthHandler)
	r.Get("/_internal/ready", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if metricsCfg.Enabled {
		if metricsCfg.Token != "" {
			r.With(middleware.MetricsGuard(metricsCfg.Token)).Handle("/metrics", promhttp.Handler())
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	ingestHandler := handler.NewIngestHandler(services.Subscriptions, services.Pool, services.IngestLimiter, services.Audit)
	r.Post("/ingest/{subscription_id}", ingestHandler.Handle)

	subsHandler := handler.NewSubscriptionHandler(services.Subscriptions)
	statusHandler := handler.NewStatusHandler(services.DeliveryLogs)

	r.Route("/subscriptions", func(admin chi.Router) {
		admin.Use(middleware.AdminGuard(services.Admin))
		admin.Post("/", subsHandler.Create)
		admin.Get("/", subsHandler.List)
		admin.Get("/{id}", subsHandler.Get)
		admin.Put("/{id}", subsHandler.Update)
		admin.Delete("/{id}", subsHandler.Delete)
	})

	r.Route("/status", func(admin chi.Router) {
		admin.Use(middleware.AdminGuard(services.Admin))
		admin.Get("/delivery-logs", statusHandler.List)
		admin.Get("/delivery/subscription/{sub_id}", statusHandler.RecentForSubscription)
		admin.Get("/delivery/{delivery_id}", statusHandler.Get)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
