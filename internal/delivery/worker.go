package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/webhookd/webhookd/internal/notifier"
	"github.com/webhookd/webhookd/internal/queue"
	"github.com/webhookd/webhookd/internal/repository"
	"github.com/webhookd/webhookd/internal/signature"
)

// EventTypesHeader names the outbound header carrying the comma-joined
// event type list of the delivered task.
const EventTypesHeader = "X-Webhook-Event"

// LogStore is the narrow slice of the delivery log service a worker needs:
// one write, at the point a task reaches a terminal outcome.
type LogStore interface {
	Record(ctx context.Context, log repository.DeliveryLog) (repository.DeliveryLog, error)
}

// SubscriptionResolver is the narrow slice of the subscription service a
// worker needs to re-resolve a task's target just before dispatch.
type SubscriptionResolver interface {
	GetForDelivery(ctx context.Context, id string, eventTypes []string) (repository.Subscription, error)
}

// Worker pulls tasks off a queue and drives each one through the retry
// state machine until it succeeds, exhausts its retry budget, or hits a
// fatal error.
type Worker struct {
	ID             int
	Queue          *queue.Queue[Task]
	Subscriptions  SubscriptionResolver
	Logs           LogStore
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	RetryIntervals []time.Duration
	Notifier       notifier.Service
	Logger         *slog.Logger
}

// Run pulls tasks until ctx is cancelled or an end marker is received.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.Queue.Pop(ctx)
		if err != nil {
			return
		}
		if task.End {
			return
		}
		w.deliver(ctx, task)
	}
}

// deliver re-resolves the task's subscription, then drives the request
// through every configured attempt, accumulating the outcome of each one
// in memory. The delivery log is written exactly once, when the task
// reaches a terminal state: there is no partial row visible mid-retry.
func (w *Worker) deliver(ctx context.Context, task Task) {
	sub, err := w.Subscriptions.GetForDelivery(ctx, task.SubscriptionID, task.EventTypes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.Logger.Warn("delivery worker: subscription gone or no longer subscribed, dropping task",
				"subscription_id", task.SubscriptionID)
			return
		}
		w.Logger.Error("delivery worker: resolve subscription failed", "subscription_id", task.SubscriptionID, "error", err)
		return
	}

	var attempts []repository.Attempt
	schedule := newRetrySchedule(w.RetryIntervals)

	for attemptNum := 1; ; attemptNum++ {
		resp, err := w.attempt(ctx, sub, task)
		outcome, errTag := Classify(resp, err)
		attempt := repository.Attempt{
			Number:      attemptNum,
			Success:     outcome == OutcomeSuccess,
			Error:       errTag,
			AttemptedAt: time.Now().UTC(),
		}
		if resp != nil {
			attempt.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		attempts = append(attempts, attempt)

		if outcome == OutcomeSuccess {
			w.finish(ctx, sub, task, attempts, repository.StatusSuccess)
			return
		}
		if outcome == OutcomeFatal {
			// No retry will change what certificate the target presents;
			// skip the rest of the schedule.
			w.finish(ctx, sub, task, attempts, repository.StatusFailed)
			w.alert(ctx, sub, fmt.Sprintf("delivery to %s aborted: %s", sub.TargetURL, errTag))
			return
		}

		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			w.finish(ctx, sub, task, attempts, repository.StatusFailed)
			w.alert(ctx, sub, fmt.Sprintf("delivery to %s failed after %d attempts", sub.TargetURL, attemptNum))
			return
		}
		if !w.sleep(ctx, wait) {
			// Shutdown cut the retry cycle short; record what happened so
			// the attempts made so far are not lost.
			w.finish(ctx, sub, task, attempts, repository.StatusFailed)
			return
		}
	}
}

// attempt performs exactly one HTTP POST, signed when the subscription
// carries a secret. The signed bytes are exactly the request body bytes.
func (w *Worker) attempt(ctx context.Context, sub repository.Subscription, task Task) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, w.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, sub.TargetURL, bytes.NewReader(task.Payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventTypesHeader, strings.Join(task.EventTypes, ","))
	if sub.Secret != "" {
		header, err := signature.Header(sub.Secret, task.Payload)
		if err != nil {
			return nil, fmt.Errorf("sign payload: %w", err)
		}
		req.Header.Set(signature.HeaderName, header)
	}

	return w.HTTPClient.Do(req)
}

// sleep waits for d or until ctx is cancelled, returning false in the
// latter case so the caller can abandon the retry loop.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Worker) finish(ctx context.Context, sub repository.Subscription, task Task, attempts []repository.Attempt, status repository.DeliveryStatus) {
	log := repository.DeliveryLog{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		TargetURL:      sub.TargetURL,
		EventTypes:     task.EventTypes,
		Payload:        task.Payload,
		Attempts:       attempts,
		FinalStatus:    status,
	}
	if _, err := w.Logs.Record(ctx, log); err != nil {
		w.Logger.Error("delivery worker: record delivery log failed", "subscription_id", sub.ID, "error", err)
	}
	w.Logger.Info("delivery finished", "subscription_id", sub.ID, "status", status, "attempts", len(attempts))
}

// alert best-effort notifies operators. It never blocks the worker: the
// underlying notifier is queue-backed and a failure here is only logged.
func (w *Worker) alert(ctx context.Context, sub repository.Subscription, message string) {
	if w.Notifier == nil {
		return
	}
	err := w.Notifier.SendEmail(ctx, notifier.EmailRequest{
		To:      "ops-alerts",
		Subject: "webhook delivery failure",
		Body:    message,
		Variables: map[string]any{
			"subscription_id": sub.ID,
			"target_url":      sub.TargetURL,
		},
	})
	if err != nil && !errors.Is(err, notifier.ErrNotImplemented) {
		w.Logger.Warn("ops alert enqueue failed", "error", err)
	}
}
