package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/webhookd/webhookd/internal/repository"
	"github.com/webhookd/webhookd/internal/service"
)

// SubscriptionHandler exposes CRUD over webhook subscriptions under the
// admin-guarded /subscriptions tree.
type SubscriptionHandler struct {
	subs *service.SubscriptionService
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(subs *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

type subscriptionRequest struct {
	TargetURL  string   `json:"target_url"`
	EventTypes []string `json:"event_types"`
	Secret     string   `json:"secret"`
}

// subscriptionPatch uses pointer fields so a partial update can tell "field
// omitted" apart from "field set to its zero value".
type subscriptionPatch struct {
	TargetURL  *string   `json:"target_url"`
	EventTypes *[]string `json:"event_types"`
	Secret     *string   `json:"secret"`
}

func (p subscriptionPatch) empty() bool {
	return p.TargetURL == nil && p.EventTypes == nil && p.Secret == nil
}

type subscriptionResponse struct {
	ID         string   `json:"id"`
	TargetURL  string   `json:"target_url"`
	EventTypes []string `json:"event_types"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func toSubscriptionResponse(sub repository.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:         sub.ID,
		TargetURL:  sub.TargetURL,
		EventTypes: sub.EventTypes,
		CreatedAt:  sub.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  sub.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create registers a new subscription. The shared secret is accepted once
// here and never echoed back in any response.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.subs.Create(r.Context(), req.TargetURL, req.EventTypes, req.Secret)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// Get returns a single subscription.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := h.subs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// maxSubscriptionListLimit bounds listing per spec: results are always
// capped at 100 regardless of what the caller requests.
const maxSubscriptionListLimit = 100

// List returns subscriptions matching event_type, bounded to 100 results.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.SubscriptionFilter{
		EventType: r.URL.Query().Get("event_type"),
		Limit:     maxSubscriptionListLimit,
	}
	subs, err := h.subs.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionResponse(s))
	}
	respondJSON(w, http.StatusOK, out)
}

// Update applies a partial patch to a subscription: only fields present in
// the request body are merged onto the stored record. An empty patch is a
// client error.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch subscriptionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.empty() {
		respondError(w, http.StatusBadRequest, "empty update")
		return
	}
	existing, err := h.subs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if patch.TargetURL != nil {
		existing.TargetURL = *patch.TargetURL
	}
	if patch.EventTypes != nil {
		existing.EventTypes = *patch.EventTypes
	}
	if patch.Secret != nil {
		existing.Secret = *patch.Secret
	}
	updated, err := h.subs.Update(r.Context(), existing)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(updated))
}

// Delete removes a subscription.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.subs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
