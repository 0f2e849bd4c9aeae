package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/webhookd/webhookd/internal/repository"
)

func newStatusRouter(env *testEnv) http.Handler {
	r := chi.NewRouter()
	h := NewStatusHandler(env.logs)
	r.Get("/status/delivery-logs", h.List)
	r.Get("/status/delivery/subscription/{sub_id}", h.RecentForSubscription)
	r.Get("/status/delivery/{delivery_id}", h.Get)
	return r
}

func recordLog(t *testing.T, env *testEnv, subID string, createdAt time.Time) repository.DeliveryLog {
	t.Helper()
	log, err := env.logs.Record(context.Background(), repository.DeliveryLog{
		SubscriptionID: subID,
		TargetURL:      "https://example.com",
		EventTypes:     []string{"a"},
		Payload:        []byte(`{}`),
		Attempts:       []repository.Attempt{{Number: 1, Success: true, StatusCode: 200, AttemptedAt: createdAt}},
		FinalStatus:    repository.StatusSuccess,
		CreatedAt:      createdAt,
	})
	require.NoError(t, err)
	return log
}

func getJSON(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusGetDeliveryLog(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newStatusRouter(env)
	log := recordLog(t, env, "sub-1", time.Now().UTC())

	rec := getJSON(t, router, "/status/delivery/"+log.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp deliveryLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, log.ID, resp.ID)
	require.Equal(t, "sub-1", resp.SubscriptionID)
	require.Len(t, resp.Attempts, 1)
}

func TestStatusGetMissingLog(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newStatusRouter(env)

	rec := getJSON(t, router, "/status/delivery/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusListLimits(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newStatusRouter(env)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		recordLog(t, env, "sub-1", base.Add(time.Duration(i)*time.Minute))
	}

	rec := getJSON(t, router, "/status/delivery-logs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var limited []deliveryLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &limited))
	require.Len(t, limited, 2)

	// limit=-1 means everything.
	rec = getJSON(t, router, "/status/delivery-logs?limit=-1")
	var all []deliveryLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 5)

	// Most recent first.
	require.Greater(t, all[0].CreatedAt, all[4].CreatedAt)
}

func TestStatusRecentForSubscription(t *testing.T) {
	env := newTestEnv(t, 8)
	router := newStatusRouter(env)

	createdAt := time.Date(2026, 7, 30, 12, 34, 56, 0, time.UTC)
	recordLog(t, env, "sub-a", createdAt)
	recordLog(t, env, "sub-b", createdAt.Add(time.Minute))

	rec := getJSON(t, router, "/status/delivery/subscription/sub-a?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []recentDeliveryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	require.Equal(t, "sub-a", resp[0].SubscriptionID)
	require.Equal(t, "2026-07-30 12:34:56", resp[0].CreatedAt)
}
