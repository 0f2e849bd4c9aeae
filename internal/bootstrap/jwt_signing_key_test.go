package bootstrap

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/webhookd/webhookd/internal/migrations"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webhookd.db")
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))
	return db
}

func TestResolveSigningKeyPrefersConfig(t *testing.T) {
	key, source, err := ResolveSigningKey(context.Background(), nil, "configured-key")
	require.NoError(t, err)
	require.Equal(t, "configured-key", key)
	require.Equal(t, SigningKeySourceConfig, source)
}

func TestResolveSigningKeyRejectsDefaultWithoutDB(t *testing.T) {
	_, _, err := ResolveSigningKey(context.Background(), nil, "change-me")
	require.Error(t, err)
}

func TestResolveSigningKeyGeneratesAndPersists(t *testing.T) {
	db := openTestDB(t)

	key, source, err := ResolveSigningKey(context.Background(), db, "")
	require.NoError(t, err)
	require.Len(t, key, 64, "32 random bytes hex encoded")
	require.Equal(t, SigningKeySourceGenerated, source)

	// A second boot reuses the persisted key.
	again, source, err := ResolveSigningKey(context.Background(), db, "change-me")
	require.NoError(t, err)
	require.Equal(t, key, again)
	require.Equal(t, SigningKeySourceSettings, source)
}
