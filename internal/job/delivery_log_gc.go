package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/webhookd/webhookd/internal/repository"
)

// DeliveryLogGCJob deletes delivery log rows older than Retention. It runs
// on the scheduler's cron loop, so a Stop() during a run simply waits for
// the in-flight pass to finish before the next tick is suppressed.
type DeliveryLogGCJob struct {
	Logs      repository.DeliveryLogRepository
	Retention time.Duration
	Logger    *slog.Logger
}

// NewDeliveryLogGCJob constructs the retention sweep job.
func NewDeliveryLogGCJob(logs repository.DeliveryLogRepository, retention time.Duration, logger *slog.Logger) *DeliveryLogGCJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryLogGCJob{Logs: logs, Retention: retention, Logger: logger}
}

// Name returns the job identifier surfaced in scheduler logs.
func (j *DeliveryLogGCJob) Name() string { return "delivery_log.gc" }

// Run deletes every delivery log created before the retention cutoff.
func (j *DeliveryLogGCJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.Retention).Unix()
	deleted, err := j.Logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.Logger.Info("delivery log retention sweep", "deleted", deleted, "retention", j.Retention)
	} else {
		j.Logger.Debug("delivery log retention sweep", "deleted", 0)
	}
	return nil
}
