package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rryowa/testskool_session/internal/models"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrUnknownKey     = errors.New("unknown token key")
	ErrIncompletePair = errors.New("token pair is incomplete")
)

// TokenStore holds the access/refresh pair. Implementations must be safe for
// concurrent use; SavePair and ClearPair touch both keys atomically.
//
// An empty value is the same as no value: Get reports ErrTokenNotFound.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	SavePair(ctx context.Context, pair models.TokenPair) error
	ClearPair(ctx context.Context) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func CheckKey(key string) error {
	if key != models.AccessKey && key != models.RefreshKey {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

func CheckPair(pair models.TokenPair) error {
	if !pair.Complete() {
		return ErrIncompletePair
	}
	return nil
}

// LoadPair reads both keys. Missing halves are returned as empty strings.
func LoadPair(ctx context.Context, s TokenStore) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := s.Get(ctx, models.AccessKey)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return pair, fmt.Errorf("get access: %w", err)
	}
	refresh, err := s.Get(ctx, models.RefreshKey)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return pair, fmt.Errorf("get refresh: %w", err)
	}

	pair.Access = access
	pair.Refresh = refresh
	return pair, nil
}
