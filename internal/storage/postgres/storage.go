package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
)

// Storage is a storage.TokenStore backed by the session_tokens table.
type Storage struct {
	db      *sql.DB
	profile string
	*TokenRepository
}

func NewStorage(db *sql.DB, profile string) *Storage {
	return &Storage{
		db:              db,
		profile:         profile,
		TokenRepository: NewTokenRepository(db, profile),
	}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	if err := storage.CheckKey(key); err != nil {
		return "", err
	}
	return s.GetToken(ctx, key)
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}
	return s.UpsertToken(ctx, key, value)
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}
	return s.DeleteToken(ctx, key)
}

func (s *Storage) SavePair(ctx context.Context, pair models.TokenPair) error {
	return s.SavePairTx(ctx, pair)
}

func (s *Storage) ClearPair(ctx context.Context) error {
	return s.DeleteAllTokens(ctx)
}

// SavePairTx заменяет оба токена в одной транзакции.
// Старая пара никогда не смешивается с новой.
func (s *Storage) SavePairTx(ctx context.Context, pair models.TokenPair) error {
	if err := storage.CheckPair(pair); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	tokenRepoTx := NewTokenRepository(tx, s.profile)

	if err := tokenRepoTx.UpsertToken(ctx, models.AccessKey, pair.Access); err != nil {
		return fmt.Errorf("failed to save access token in tx: %w", err)
	}
	if err := tokenRepoTx.UpsertToken(ctx, models.RefreshKey, pair.Refresh); err != nil {
		return fmt.Errorf("failed to save refresh token in tx: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
