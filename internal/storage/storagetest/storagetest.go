// Package storagetest holds the behaviour every storage.TokenStore driver
// has to share.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
)

// RunTokenStoreTests runs the common cases. newStore must return an empty
// store on each call.
func RunTokenStoreTests(t *testing.T, newStore func(t *testing.T) storage.TokenStore) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), models.AccessKey)
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	})

	t.Run("unknown key", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Get(ctx, "password")
		assert.ErrorIs(t, err, storage.ErrUnknownKey)
		assert.ErrorIs(t, s.Set(ctx, "password", "x"), storage.ErrUnknownKey)
		assert.ErrorIs(t, s.Remove(ctx, "password"), storage.ErrUnknownKey)
	})

	t.Run("set get remove", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, models.AccessKey, "a1"))
		got, err := s.Get(ctx, models.AccessKey)
		require.NoError(t, err)
		assert.Equal(t, "a1", got)

		require.NoError(t, s.Set(ctx, models.AccessKey, "a2"))
		got, err = s.Get(ctx, models.AccessKey)
		require.NoError(t, err)
		assert.Equal(t, "a2", got)

		require.NoError(t, s.Remove(ctx, models.AccessKey))
		require.NoError(t, s.Remove(ctx, models.AccessKey))
		_, err = s.Get(ctx, models.AccessKey)
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	})

	t.Run("empty value is absent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, models.AccessKey, ""))
		require.NoError(t, s.Set(ctx, models.RefreshKey, "r0"))

		_, err := s.Get(ctx, models.AccessKey)
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)

		pair, err := storage.LoadPair(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, models.TokenPair{Refresh: "r0"}, pair)
		assert.False(t, pair.Complete())
	})

	t.Run("save and clear pair", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		pair := models.TokenPair{Access: "a1", Refresh: "r1"}
		require.NoError(t, s.SavePair(ctx, pair))
		got, err := storage.LoadPair(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, pair, got)

		next := models.TokenPair{Access: "a2", Refresh: "r2"}
		require.NoError(t, s.SavePair(ctx, next))
		got, err = storage.LoadPair(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, next, got)

		require.NoError(t, s.ClearPair(ctx))
		require.NoError(t, s.ClearPair(ctx))
		got, err = storage.LoadPair(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, models.TokenPair{}, got)
	})

	t.Run("incomplete pair is refused", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SavePair(ctx, models.TokenPair{Access: "a1", Refresh: "r1"}))
		assert.ErrorIs(t, s.SavePair(ctx, models.TokenPair{Access: "a2"}), storage.ErrIncompletePair)

		got, err := storage.LoadPair(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, models.TokenPair{Access: "a1", Refresh: "r1"}, got)
	})

	t.Run("concurrent pair writes never mix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		pairs := []models.TokenPair{
			{Access: "a1", Refresh: "r1"},
			{Access: "a2", Refresh: "r2"},
			{Access: "a3", Refresh: "r3"},
		}

		var wg sync.WaitGroup
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func(p models.TokenPair) {
				defer wg.Done()
				assert.NoError(t, s.SavePair(ctx, p))
			}(pairs[i%len(pairs)])
		}
		wg.Wait()

		got, err := storage.LoadPair(ctx, s)
		require.NoError(t, err)
		assert.Contains(t, pairs, got)
	})
}
