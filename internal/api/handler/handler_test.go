package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/webhookd/webhookd/internal/cache"
	"github.com/webhookd/webhookd/internal/delivery"
	"github.com/webhookd/webhookd/internal/migrations"
	"github.com/webhookd/webhookd/internal/repository/sqlite"
	"github.com/webhookd/webhookd/internal/service"
)

type testEnv struct {
	subs *service.SubscriptionService
	logs *service.DeliveryLogService
	pool *delivery.Pool
}

// newTestEnv wires real services over a migrated temp SQLite database and
// an in-process cache. The pool's workers are not started, so submitted
// tasks stay observable in the queue.
func newTestEnv(t *testing.T, queueCapacity int) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "webhookd.db")
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))

	store := sqlite.NewStore(db)
	cacheStore := cache.NewStore(cache.Options{DefaultTTL: time.Minute})
	subs := service.NewSubscriptionService(store.Subscriptions(), cacheStore, time.Minute)
	logs := service.NewDeliveryLogService(store.DeliveryLogs())

	pool := delivery.NewPool(delivery.Config{
		WorkerCount:    0,
		QueueCapacity:  queueCapacity,
		RequestTimeout: time.Second,
		Subscriptions:  subs,
		Logs:           logs,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{subs: subs, logs: logs, pool: pool}
}
