package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/webhookd/webhookd/internal/async"
	"github.com/webhookd/webhookd/internal/notifier"
)

// SendEmailAlertJob drains queued email alerts and hands them to the
// configured notifier. A transport failure requeues the alert for the next
// tick; an unconfigured channel only warns.
type SendEmailAlertJob struct {
	Queue    *async.AlertQueue
	Notifier notifier.Service
	Logger   *slog.Logger
}

// NewSendEmailAlertJob constructs the email drain job.
func NewSendEmailAlertJob(queue *async.AlertQueue, svc notifier.Service, logger *slog.Logger) *SendEmailAlertJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendEmailAlertJob{Queue: queue, Notifier: svc, Logger: logger}
}

// Name returns the job identifier surfaced in scheduler logs.
func (j *SendEmailAlertJob) Name() string { return "alert.email" }

// Run dispatches all buffered email alerts.
func (j *SendEmailAlertJob) Run(ctx context.Context) error {
	if j == nil || j.Queue == nil || j.Notifier == nil {
		return fmt.Errorf("email alert job dependencies not configured")
	}
	if dropped := j.Queue.TakeDroppedEmails(); dropped > 0 {
		j.Logger.Warn("email alerts discarded on buffer overflow", "count", dropped)
	}
	emails := j.Queue.DrainEmails()
	if len(emails) == 0 {
		return nil
	}
	for _, req := range emails {
		if err := j.Notifier.SendEmail(ctx, req); err != nil {
			if errors.Is(err, notifier.ErrNotImplemented) {
				j.Logger.Warn("email alert not delivered", "reason", err)
				continue
			}
			j.Queue.RequeueEmail(req)
			return err
		}
	}
	j.Logger.Debug("email alerts sent", "count", len(emails))
	return nil
}

// SendTelegramAlertJob drains queued telegram alerts.
type SendTelegramAlertJob struct {
	Queue    *async.AlertQueue
	Notifier notifier.Service
	Logger   *slog.Logger
}

// NewSendTelegramAlertJob constructs the telegram drain job.
func NewSendTelegramAlertJob(queue *async.AlertQueue, svc notifier.Service, logger *slog.Logger) *SendTelegramAlertJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendTelegramAlertJob{Queue: queue, Notifier: svc, Logger: logger}
}

// Name returns the job identifier surfaced in scheduler logs.
func (j *SendTelegramAlertJob) Name() string { return "alert.telegram" }

// Run dispatches all buffered telegram alerts.
func (j *SendTelegramAlertJob) Run(ctx context.Context) error {
	if j == nil || j.Queue == nil || j.Notifier == nil {
		return fmt.Errorf("telegram alert job dependencies not configured")
	}
	if dropped := j.Queue.TakeDroppedTelegrams(); dropped > 0 {
		j.Logger.Warn("telegram alerts discarded on buffer overflow", "count", dropped)
	}
	msgs := j.Queue.DrainTelegrams()
	if len(msgs) == 0 {
		return nil
	}
	for _, req := range msgs {
		if err := j.Notifier.SendTelegram(ctx, req); err != nil {
			if errors.Is(err, notifier.ErrNotImplemented) {
				j.Logger.Warn("telegram alert not delivered", "reason", err)
				continue
			}
			j.Queue.RequeueTelegram(req)
			return err
		}
	}
	j.Logger.Debug("telegram alerts sent", "count", len(msgs))
	return nil
}
