package memory

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rryowa/testskool_session/internal/storage"
	"github.com/rryowa/testskool_session/internal/storage/storagetest"
)

func TestInMemoryTokenStore(t *testing.T) {
	storagetest.RunTokenStoreTests(t, func(t *testing.T) storage.TokenStore {
		return NewTokenStore(zaptest.NewLogger(t).Sugar())
	})
}
