package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
)

const keyPrefix = "testskool"

type TokenStorage struct {
	client  *redis.Client
	profile string
}

func NewTokenStorage(client *redis.Client, profile string) *TokenStorage {
	return &TokenStorage{client: client, profile: profile}
}

func (s *TokenStorage) key(name string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, s.profile, name)
}

func (s *TokenStorage) Get(ctx context.Context, key string) (string, error) {
	if err := storage.CheckKey(key); err != nil {
		return "", err
	}

	result, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrTokenNotFound
	} else if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	if result == "" {
		return "", storage.ErrTokenNotFound
	}
	return result, nil
}

func (s *TokenStorage) Set(ctx context.Context, key, value string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *TokenStorage) Remove(ctx context.Context, key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

// SavePair пишет оба токена в одной транзакции MULTI/EXEC.
func (s *TokenStorage) SavePair(ctx context.Context, pair models.TokenPair) error {
	if err := storage.CheckPair(pair); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(models.AccessKey), pair.Access, 0)
		pipe.Set(ctx, s.key(models.RefreshKey), pair.Refresh, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save token pair: %w", err)
	}
	return nil
}

func (s *TokenStorage) ClearPair(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(models.AccessKey), s.key(models.RefreshKey)).Err(); err != nil {
		return fmt.Errorf("clear token pair: %w", err)
	}
	return nil
}
