package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/erazemk/zaloga/internal/db"
)

// ErrSettingNotFound is returned when a settings key has no value.
var ErrSettingNotFound = errors.New("setting not found")

const (
	settingJWTSecret      = "jwt_secret"
	settingPassphraseHash = "passphrase_hash"
)

// GetSetting returns the value stored under key.
func GetSetting(ctx context.Context, database *db.DB, key string) (string, error) {
	query, args, err := database.Builder().
		Select("value").
		From("settings").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building setting query: %w", err)
	}

	var value string
	err = database.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key, replacing any previous value.
func SetSetting(ctx context.Context, database *db.DB, key, value string) error {
	query, args, err := database.Builder().
		Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("building setting upsert: %w", err)
	}

	if _, err := database.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Insert-if-absent followed by a re-select keeps concurrent startups on the same secret.
func GetJWTSecret(ctx context.Context, database *db.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	query, args, err := database.Builder().
		Insert("settings").
		Columns("key", "value").
		Values(settingJWTSecret, candidate).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building jwt_secret insert: %w", err)
	}
	if _, err := database.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Either our insert or the existing value.
	secret, err := GetSetting(ctx, database, settingJWTSecret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}
	return secret, nil
}

// GetPassphraseHash returns the bcrypt hash of the operator passphrase, or
// ErrSettingNotFound if none was set up yet.
func GetPassphraseHash(ctx context.Context, database *db.DB) (string, error) {
	return GetSetting(ctx, database, settingPassphraseHash)
}

// SetPassphraseHash stores the bcrypt hash of the operator passphrase.
func SetPassphraseHash(ctx context.Context, database *db.DB, hash string) error {
	return SetSetting(ctx, database, settingPassphraseHash, hash)
}
