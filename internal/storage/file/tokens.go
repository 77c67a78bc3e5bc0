// Package file keeps the token pair in a JSON file so a session survives
// agent restarts on the same machine.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

type TokenStore struct {
	mu   sync.Mutex
	path string
	log  *zap.SugaredLogger
}

func NewTokenStore(path string, log *zap.SugaredLogger) *TokenStore {
	return &TokenStore{path: path, log: log}
}

func (s *TokenStore) Get(_ context.Context, key string) (string, error) {
	if err := storage.CheckKey(key); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := tokens[key]
	if !ok || value == "" {
		return "", storage.ErrTokenNotFound
	}
	return value, nil
}

func (s *TokenStore) Set(_ context.Context, key, value string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return s.update(func(tokens map[string]string) {
		tokens[key] = value
	})
}

func (s *TokenStore) Remove(_ context.Context, key string) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}

	return s.update(func(tokens map[string]string) {
		delete(tokens, key)
	})
}

func (s *TokenStore) SavePair(_ context.Context, pair models.TokenPair) error {
	if err := storage.CheckPair(pair); err != nil {
		return err
	}

	return s.update(func(tokens map[string]string) {
		tokens[models.AccessKey] = pair.Access
		tokens[models.RefreshKey] = pair.Refresh
	})
}

func (s *TokenStore) ClearPair(_ context.Context) error {
	return s.update(func(tokens map[string]string) {
		for _, key := range models.TokenKeys() {
			delete(tokens, key)
		}
	})
}

func (s *TokenStore) update(mutate func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	mutate(tokens)
	return s.write(tokens)
}

func (s *TokenStore) load() (map[string]string, error) {
	tokens := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tokens, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if len(data) == 0 {
		return tokens, nil
	}

	if err := json.Unmarshal(data, &tokens); err != nil {
		// Битый файл равносилен отсутствию сессии.
		s.log.Warnw("Token file is corrupt, ignoring it", "path", s.path, "error", err)
		return make(map[string]string), nil
	}
	return tokens, nil
}

// write replaces the file through a rename so readers never see half a pair.
func (s *TokenStore) write(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
