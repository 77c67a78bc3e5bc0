package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage/memory"
)

var testEpoch = time.Unix(1_700_000_000, 0)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zaptest.NewLogger(t).Sugar()
}

// makeToken signs a throwaway JWT. Every call yields a distinct token, even
// for the same exp.
func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	return makeTokenWithKey(t, exp, []byte("agent-test-key"))
}

func makeTokenWithKey(t *testing.T, exp time.Time, key []byte) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRefresher answers refresh POSTs from respond. If gate is set every call
// blocks on it first.
type fakeRefresher struct {
	calls   atomic.Int64
	gate    chan struct{}
	respond func(refresh string) (models.TokenPair, error)

	mu   sync.Mutex
	seen []string
}

func (f *fakeRefresher) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, refresh)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return models.TokenPair{}, ctx.Err()
		}
	}
	return f.respond(refresh)
}

func (f *fakeRefresher) Seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// pairIssuer returns a respond func that hands out fresh pairs expiring ttl
// after clock's current time.
func pairIssuer(t *testing.T, clock *testClock, ttl time.Duration) func(string) (models.TokenPair, error) {
	return func(string) (models.TokenPair, error) {
		return models.TokenPair{
			Access:  makeToken(t, clock.Now().Add(ttl)),
			Refresh: "refresh-" + uuid.NewString(),
		}, nil
	}
}

type refreshFixture struct {
	clock     *testClock
	store     *memory.InMemoryTokenStore
	session   *Session
	refresher *fakeRefresher
	svc       *RefreshService
}

func newRefreshFixture(t *testing.T, pair *models.TokenPair) *refreshFixture {
	t.Helper()

	log := testLogger(t)
	clock := newTestClock(testEpoch)
	store := memory.NewTokenStore(log)

	initial := ""
	if pair != nil {
		require.NoError(t, store.SavePair(context.Background(), *pair))
		initial = pair.Access
	}

	session := NewSession(initial)
	refresher := &fakeRefresher{respond: pairIssuer(t, clock, 10*time.Minute)}
	svc := NewRefreshService(store, refresher, session, log,
		WithClock(clock.Now),
		WithSafetyMargin(time.Minute),
		WithMinDelay(time.Second),
		WithRefreshTimeout(5*time.Second),
	)

	return &refreshFixture{
		clock:     clock,
		store:     store,
		session:   session,
		refresher: refresher,
		svc:       svc,
	}
}
