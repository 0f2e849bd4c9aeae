package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webhookd/webhookd/internal/api"
	"github.com/webhookd/webhookd/internal/bootstrap"
	"github.com/webhookd/webhookd/internal/config"
	"github.com/webhookd/webhookd/internal/delivery"
	"github.com/webhookd/webhookd/internal/job"
	"github.com/webhookd/webhookd/internal/migrations"
	"github.com/webhookd/webhookd/internal/notifier"
	"github.com/webhookd/webhookd/internal/repository/sqlite"
	"github.com/webhookd/webhookd/internal/service"
	"github.com/webhookd/webhookd/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhookd server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Service:   "webhookd",
	})

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}

	signingKey, signingKeySource, err := bootstrap.ResolveSigningKey(ctx, db, cfg.Auth.SigningKey)
	if err != nil {
		return err
	}
	cfg.Auth.SigningKey = signingKey
	logger.Info("admin signing key resolved", "source", signingKeySource)

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}

	// One long-lived admin token, logged once at boot. Operators paste it
	// into the Authorization header for the management API.
	adminToken, _, err := infra.Token.Issue("admin", "admin", cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	logger.Info("management api token issued", "token", adminToken, "ttl", cfg.Auth.TokenTTL)

	store := sqlite.NewStore(db)
	subscriptions := service.NewSubscriptionService(store.Subscriptions(), infra.Cache, cfg.Cache.SubscriptionTTL)
	deliveryLogs := service.NewDeliveryLogService(store.DeliveryLogs())

	pool := delivery.NewPool(delivery.Config{
		WorkerCount:    cfg.Queue.WorkerCount,
		QueueCapacity:  cfg.Queue.Capacity,
		RequestTimeout: cfg.Delivery.RequestTimeout,
		RetryIntervals: cfg.Delivery.RetryIntervals,
		Subscriptions:  subscriptions,
		Logs:           deliveryLogs,
		Notifier:       infra.Notifier,
		Logger:         logger,
	})
	// Workers run on a background context, not the signal context: a
	// shutdown signal must let them drain the queue via end markers, not
	// cut them off mid-task.
	pool.Start(context.Background())
	logger.Info("delivery worker pool started",
		"workers", cfg.Queue.WorkerCount,
		"queue_capacity", cfg.Queue.Capacity,
		"retry_intervals", cfg.Delivery.RetryIntervals)

	scheduler := job.NewScheduler(logger)

	gcJob := job.NewDeliveryLogGCJob(store.DeliveryLogs(), cfg.Retention.LogRetention, logger)
	gcSpec := fmt.Sprintf("@every %s", cfg.Retention.CleanupInterval)
	// The sweep deletes by range; give it more room than the quick drain
	// jobs before its run is cancelled.
	if _, err := scheduler.RegisterWithTimeout(gcSpec, gcJob, 10*time.Minute); err != nil {
		return err
	}
	emailAlertJob := job.NewSendEmailAlertJob(infra.AlertQueue, notifier.NewLoggerService(logger), logger)
	if _, err := scheduler.Register("@every 10s", emailAlertJob); err != nil {
		return err
	}
	telegramAlertJob := job.NewSendTelegramAlertJob(infra.AlertQueue, notifier.NewLoggerService(logger), logger)
	if _, err := scheduler.Register("@every 10s", telegramAlertJob); err != nil {
		return err
	}
	scheduler.Start()

	router := api.NewRouter(logger, api.Services{
		Subscriptions: subscriptions,
		DeliveryLogs:  deliveryLogs,
		Pool:          pool,
		IngestLimiter: infra.IngestLimiter,
		Audit:         infra.Audit,
		Admin:         infra.Token,
	}, cfg.Metrics)

	server := bootstrap.NewHTTPServer(cfg, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Shutdown order: stop intake first so no new tasks are queued, then
	// drain the worker pool, then the background jobs.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("draining delivery worker pool", "queued", pool.QueueLen())
	pool.Stop()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(cfg.HTTP.ShutdownTimeout):
		logger.Warn("scheduler stop timed out")
	}

	logger.Info("server exited cleanly")
	return nil
}
