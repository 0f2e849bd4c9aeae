package bootstrap

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SigningKeySource says where the resolved admin JWT signing key came from.
type SigningKeySource string

const (
	SigningKeySourceConfig    SigningKeySource = "config"
	SigningKeySourceSettings  SigningKeySource = "settings"
	SigningKeySourceGenerated SigningKeySource = "generated"

	defaultSigningKey    = "change-me"
	signingKeySettingKey = "auth_signing_key"
	signingKeyCategory   = "security"
	signingKeyBytes      = 32
)

// ResolveSigningKey resolves the admin JWT signing key: an explicit config
// value wins; otherwise a previously persisted key is reused from the
// settings table; otherwise a fresh key is generated and persisted so
// tokens survive restarts.
func ResolveSigningKey(ctx context.Context, db *sql.DB, configuredKey string) (string, SigningKeySource, error) {
	configured := strings.TrimSpace(configuredKey)
	if configured != "" && configured != defaultSigningKey {
		return configured, SigningKeySourceConfig, nil
	}

	if db == nil {
		return "", "", fmt.Errorf("resolve signing key: db is required when auth.signing_key is unset; set WEBHOOKD_AUTH_SIGNING_KEY")
	}

	existing, err := readSigningKeySetting(ctx, db)
	if err != nil {
		return "", "", fmt.Errorf("read signing key from settings: %w", err)
	}
	if existing != "" {
		return existing, SigningKeySourceSettings, nil
	}

	generated, err := generateSigningKey()
	if err != nil {
		return "", "", fmt.Errorf("generate signing key: %w", err)
	}
	if err := persistSigningKeySetting(ctx, db, generated, time.Now().Unix()); err != nil {
		return "", "", fmt.Errorf("persist signing key: %w", err)
	}

	// Re-read instead of trusting our own write: a concurrent boot racing
	// us may have persisted first, and both processes must agree.
	resolved, err := readSigningKeySetting(ctx, db)
	if err != nil {
		return "", "", fmt.Errorf("read signing key after persistence: %w", err)
	}
	if resolved == "" {
		return "", "", fmt.Errorf("signing key missing after persistence")
	}
	if resolved == generated {
		return resolved, SigningKeySourceGenerated, nil
	}
	return resolved, SigningKeySourceSettings, nil
}

func readSigningKeySetting(ctx context.Context, db *sql.DB) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, signingKeySettingKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func persistSigningKeySetting(ctx context.Context, db *sql.DB, key string, updatedAt int64) error {
	const statement = `INSERT INTO settings(key, value, category, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, category = excluded.category, updated_at = excluded.updated_at
		WHERE TRIM(settings.value) = ''`
	_, err := db.ExecContext(ctx, statement, signingKeySettingKey, key, signingKeyCategory, updatedAt)
	return err
}

func generateSigningKey() (string, error) {
	buf := make([]byte, signingKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
