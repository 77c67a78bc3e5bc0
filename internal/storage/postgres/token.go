package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rryowa/testskool_session/internal/storage"
)

type TokenRepository struct {
	db      storage.DBTX
	profile string
}

func NewTokenRepository(db storage.DBTX, profile string) *TokenRepository {
	return &TokenRepository{db: db, profile: profile}
}

func (r *TokenRepository) GetToken(ctx context.Context, name string) (string, error) {
	var value string
	query := `SELECT value FROM session_tokens WHERE profile = $1 AND name = $2`
	err := r.db.QueryRowContext(ctx, query, r.profile, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	if value == "" {
		return "", storage.ErrTokenNotFound
	}
	return value, nil
}

func (r *TokenRepository) UpsertToken(ctx context.Context, name, value string) error {
	query := `INSERT INTO session_tokens (profile, name, value, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (profile, name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := r.db.ExecContext(ctx, query, r.profile, name, value); err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteToken(ctx context.Context, name string) error {
	query := `DELETE FROM session_tokens WHERE profile = $1 AND name = $2`
	if _, err := r.db.ExecContext(ctx, query, r.profile, name); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteAllTokens(ctx context.Context) error {
	query := `DELETE FROM session_tokens WHERE profile = $1`
	if _, err := r.db.ExecContext(ctx, query, r.profile); err != nil {
		return fmt.Errorf("delete profile tokens: %w", err)
	}
	return nil
}
