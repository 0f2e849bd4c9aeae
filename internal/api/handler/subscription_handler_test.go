package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newSubscriptionRouter(env *testEnv) http.Handler {
	r := chi.NewRouter()
	h := NewSubscriptionHandler(env.subs)
	r.Post("/subscriptions", h.Create)
	r.Get("/subscriptions", h.List)
	r.Get("/subscriptions/{id}", h.Get)
	r.Put("/subscriptions/{id}", h.Update)
	r.Delete("/subscriptions/{id}", h.Delete)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSubscription(t *testing.T, rec *httptest.ResponseRecorder) subscriptionResponse {
	t.Helper()
	var resp subscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSubscriptionCreateAndGet(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
		"target_url":  "https://test.com",
		"event_types": []string{"test.event"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeSubscription(t, rec)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "https://test.com", created.TargetURL)
	require.Equal(t, []string{"test.event"}, created.EventTypes)

	rec = doJSON(t, router, http.MethodGet, "/subscriptions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeSubscription(t, rec)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, created.TargetURL, fetched.TargetURL)
}

func TestSubscriptionCreateValidation(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
		"target_url": "not a url",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubscriptionCreateNeverEchoesSecret(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
		"target_url": "https://test.com",
		"secret":     "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "hunter2")
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
		"target_url":  "https://test.com",
		"event_types": []string{"test.event"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeSubscription(t, rec)

	rec = doJSON(t, router, http.MethodPut, "/subscriptions/"+created.ID, map[string]any{
		"target_url":  "https://updated.com",
		"event_types": []string{"updated.event"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeSubscription(t, rec)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "https://updated.com", updated.TargetURL)
	require.Equal(t, []string{"updated.event"}, updated.EventTypes)

	rec = doJSON(t, router, http.MethodDelete, "/subscriptions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/subscriptions/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionPartialUpdate(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
		"target_url":  "https://test.com",
		"event_types": []string{"a"},
	})
	created := decodeSubscription(t, rec)

	// Patch only event_types; target_url must survive.
	rec = doJSON(t, router, http.MethodPut, "/subscriptions/"+created.ID, map[string]any{
		"event_types": []string{"b"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeSubscription(t, rec)
	require.Equal(t, "https://test.com", updated.TargetURL)
	require.Equal(t, []string{"b"}, updated.EventTypes)
}

func TestSubscriptionEmptyPatch(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
		"target_url": "https://test.com",
	})
	created := decodeSubscription(t, rec)

	rec = doJSON(t, router, http.MethodPut, "/subscriptions/"+created.ID, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionUpdateMissingRecord(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodPut, "/subscriptions/nope", map[string]any{
		"target_url": "https://x.com",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionDeleteMissingRecord(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	rec := doJSON(t, router, http.MethodDelete, "/subscriptions/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionList(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newSubscriptionRouter(env)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/subscriptions", map[string]any{
			"target_url": "https://test.com",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/subscriptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []subscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
}
