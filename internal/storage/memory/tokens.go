package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
)

type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
	log    *zap.SugaredLogger
}

func NewTokenStore(log *zap.SugaredLogger) *InMemoryTokenStore {
	return &InMemoryTokenStore{
		tokens: make(map[string]string),
		log:    log,
	}
}

func (m *InMemoryTokenStore) Get(_ context.Context, key string) (string, error) {
	if err := storage.CheckKey(key); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.tokens[key]
	if !ok || value == "" {
		return "", storage.ErrTokenNotFound
	}
	return value, nil
}

func (m *InMemoryTokenStore) Set(_ context.Context, key, value string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[key] = value
	m.log.Debugw("Token set", "key", key)
	return nil
}

func (m *InMemoryTokenStore) Remove(_ context.Context, key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, key)
	return nil
}

func (m *InMemoryTokenStore) SavePair(_ context.Context, pair models.TokenPair) error {
	if err := storage.CheckPair(pair); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[models.AccessKey] = pair.Access
	m.tokens[models.RefreshKey] = pair.Refresh
	m.log.Debugw("Token pair saved")
	return nil
}

func (m *InMemoryTokenStore) ClearPair(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range models.TokenKeys() {
		delete(m.tokens, key)
	}
	m.log.Debugw("Token pair cleared")
	return nil
}
