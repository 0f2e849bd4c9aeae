package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/webhookd/webhookd/internal/repository"
	"github.com/webhookd/webhookd/internal/service"
)

// StatusHandler exposes read access to delivery history under the
// admin-guarded /status tree.
type StatusHandler struct {
	logs *service.DeliveryLogService
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(logs *service.DeliveryLogService) *StatusHandler {
	return &StatusHandler{logs: logs}
}

type deliveryLogResponse struct {
	ID             string                    `json:"id"`
	SubscriptionID string                    `json:"subscription_id"`
	TargetURL      string                    `json:"target_url"`
	EventTypes     []string                  `json:"event_types"`
	Payload        json.RawMessage           `json:"payload,omitempty"`
	Attempts       []repository.Attempt      `json:"attempts"`
	FinalStatus    repository.DeliveryStatus `json:"final_status"`
	CreatedAt      string                    `json:"created_at"`
}

func toDeliveryLogResponse(log repository.DeliveryLog) deliveryLogResponse {
	return deliveryLogResponse{
		ID:             log.ID,
		SubscriptionID: log.SubscriptionID,
		TargetURL:      log.TargetURL,
		EventTypes:     log.EventTypes,
		Payload:        json.RawMessage(log.Payload),
		Attempts:       log.Attempts,
		FinalStatus:    log.FinalStatus,
		CreatedAt:      log.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// recentDeliveryResponse matches the literal YYYY-MM-DD HH:MM:SS timestamp
// format the subscription-scoped recent-deliveries endpoint contracts for.
type recentDeliveryResponse struct {
	ID             string                    `json:"id"`
	SubscriptionID string                    `json:"subscription_id"`
	TargetURL      string                    `json:"target_url"`
	EventTypes     []string                  `json:"event_types"`
	Attempts       []repository.Attempt      `json:"attempts"`
	FinalStatus    repository.DeliveryStatus `json:"final_status"`
	CreatedAt      string                    `json:"created_at"`
}

func toRecentDeliveryResponse(log repository.DeliveryLog) recentDeliveryResponse {
	return recentDeliveryResponse{
		ID:             log.ID,
		SubscriptionID: log.SubscriptionID,
		TargetURL:      log.TargetURL,
		EventTypes:     log.EventTypes,
		Attempts:       log.Attempts,
		FinalStatus:    log.FinalStatus,
		CreatedAt:      log.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// Get returns a single delivery log's full attempt history.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "delivery_id")
	log, err := h.logs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "delivery log not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, toDeliveryLogResponse(log))
}

// List returns delivery logs, most-recent-first, optionally filtered by
// subscription_id and/or status. limit=-1 means "no limit".
func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.DeliveryLogFilter{
		SubscriptionID: query.Get("subscription_id"),
		Status:         repository.DeliveryStatus(query.Get("status")),
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	logs, err := h.logs.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	out := make([]deliveryLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toDeliveryLogResponse(l))
	}
	respondJSON(w, http.StatusOK, out)
}

// RecentForSubscription returns the most recent deliveries for one
// subscription, created_at descending, with timestamps rendered
// YYYY-MM-DD HH:MM:SS.
func (h *StatusHandler) RecentForSubscription(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "sub_id")
	filter := repository.DeliveryLogFilter{SubscriptionID: subID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	logs, err := h.logs.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	out := make([]recentDeliveryResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toRecentDeliveryResponse(l))
	}
	respondJSON(w, http.StatusOK, out)
}
