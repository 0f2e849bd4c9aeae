package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webhookd/webhookd/internal/delivery"
	"github.com/webhookd/webhookd/internal/queue"
	"github.com/webhookd/webhookd/internal/repository"
	"github.com/webhookd/webhookd/internal/security"
	"github.com/webhookd/webhookd/internal/service"
	"github.com/webhookd/webhookd/internal/signature"
)

// maxIngestBody caps the accepted event payload size independent of the
// general body-limit middleware, since ingest traffic is untrusted.
const maxIngestBody = 1 << 20 // 1MiB

// ingestRateLimit bounds accepted events per subscription per minute.
const (
	ingestRateLimit  = 60
	ingestRateWindow = time.Minute
)

// IngestHandler accepts an event for a subscription, verifies its HMAC
// signature and event-type filter, and hands it off to the delivery worker
// pool without blocking on delivery itself. No delivery log row exists
// until a worker reaches a terminal state for the task.
type IngestHandler struct {
	subs    *service.SubscriptionService
	pool    *delivery.Pool
	limiter *security.RateLimiter
	audit   security.Recorder
}

// NewIngestHandler constructs an IngestHandler.
func NewIngestHandler(subs *service.SubscriptionService, pool *delivery.Pool, limiter *security.RateLimiter, audit security.Recorder) *IngestHandler {
	return &IngestHandler{subs: subs, pool: pool, limiter: limiter, audit: audit}
}

// Handle implements the ingest protocol: resolve, verify signature, filter
// by event type, enqueue, respond 202 immediately.
func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "subscription_id")
	eventTypes := r.URL.Query()["event_types"]

	if h.limiter != nil {
		result, err := h.limiter.Allow(ctx, "ingest:"+subscriptionID, ingestRateLimit, ingestRateWindow)
		if err == nil && !result.Allowed {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	sub, err := h.subs.Get(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "subscription lookup failed")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(payload) > maxIngestBody {
		respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if sub.Secret != "" {
		sig := r.Header.Get(signature.HeaderName)
		if sig == "" {
			// Both failures answer 403; the short detail says which check
			// failed, and the audit trail records the same reason.
			h.recordAuthFailure(r, sub.ID, "missing_signature")
			respondError(w, http.StatusForbidden, "Missing signature")
			return
		}
		valid, err := signature.Verify(sub.Secret, payload, sig)
		if err != nil || !valid {
			h.recordAuthFailure(r, sub.ID, "invalid_signature")
			respondError(w, http.StatusForbidden, "Invalid signature")
			return
		}
	}

	if !sub.MatchesAny(eventTypes) {
		respondError(w, http.StatusForbidden, "Event not subscribed")
		return
	}

	canonical, err := signature.Canonicalize(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	task := delivery.Task{
		SubscriptionID: sub.ID,
		EventTypes:     eventTypes,
		Payload:        canonical,
	}
	if err := h.pool.Submit(task); err != nil {
		if errors.Is(err, queue.ErrFull) {
			respondError(w, http.StatusServiceUnavailable, "delivery queue is full, retry later")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to enqueue delivery")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *IngestHandler) recordAuthFailure(r *http.Request, subscriptionID, reason string) {
	if h.audit == nil {
		return
	}
	h.audit.Record(r.Context(), security.Event{
		Kind:      "ingest.auth_failure",
		ActorID:   subscriptionID,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"reason": reason},
	})
}
