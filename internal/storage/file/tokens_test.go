package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
	"github.com/rryowa/testskool_session/internal/storage/storagetest"
)

func TestFileTokenStore(t *testing.T) {
	storagetest.RunTokenStoreTests(t, func(t *testing.T) storage.TokenStore {
		return NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"), zaptest.NewLogger(t).Sugar())
	})
}

func TestFileTokenStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.json")
	ctx := context.Background()
	pair := models.TokenPair{Access: "a1", Refresh: "r1"}

	require.NoError(t, NewTokenStore(path, zaptest.NewLogger(t).Sugar()).SavePair(ctx, pair))

	reopened := NewTokenStore(path, zaptest.NewLogger(t).Sugar())
	got, err := storage.LoadPair(ctx, reopened)
	require.NoError(t, err)
	assert.Equal(t, pair, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestFileTokenStore_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), filePerm))
	s := NewTokenStore(path, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	_, err := s.Get(ctx, models.AccessKey)
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)

	require.NoError(t, s.SavePair(ctx, models.TokenPair{Access: "a1", Refresh: "r1"}))
	got, err := s.Get(ctx, models.RefreshKey)
	require.NoError(t, err)
	assert.Equal(t, "r1", got)
}

func TestFileTokenStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := NewTokenStore(filepath.Join(dir, "tokens.json"), zaptest.NewLogger(t).Sugar())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SavePair(context.Background(), models.TokenPair{Access: "a", Refresh: "r"}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tokens.json", entries[0].Name())
}
