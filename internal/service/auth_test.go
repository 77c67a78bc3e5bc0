package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/devbackend"
	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
	"github.com/rryowa/testskool_session/internal/storage/memory"
	"github.com/rryowa/testskool_session/internal/util"
)

func responseStatus(t *testing.T, err error) int {
	t.Helper()
	var respErr util.ResponseError
	require.ErrorAs(t, err, &respErr)
	return respErr.Status
}

type agentFixture struct {
	dev     *devbackend.Server
	clock   *testClock
	store   *memory.InMemoryTokenStore
	session *Session
	refresh *RefreshService
	auth    *AuthService
}

// newAgentFixture wires the real agent stack against an in-process backend.
func newAgentFixture(t *testing.T) *agentFixture {
	t.Helper()

	log := testLogger(t)
	dev := devbackend.New(devbackend.Config{
		Secret:     []byte("dev-secret"),
		AccessTTL:  2 * time.Minute,
		RefreshTTL: time.Hour,
	}, log)
	require.NoError(t, dev.AddUser("alice", "password123", false))
	srv := httptest.NewServer(dev.Handler())
	t.Cleanup(srv.Close)

	clock := newTestClock(time.Now())
	store := memory.NewTokenStore(log)
	session := NewSession("")
	client := backend.NewClient(srv.URL, 2*time.Second, log)

	refresh := NewRefreshService(store, client, session, log, WithClock(clock.Now))
	auth := NewAuthService(client, store, session, log)
	t.Cleanup(auth.Close)

	eject := NewAuthInterceptor(refresh, log).Register(client)
	t.Cleanup(eject)

	return &agentFixture{
		dev:     dev,
		clock:   clock,
		store:   store,
		session: session,
		refresh: refresh,
		auth:    auth,
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))

	pair, err := storage.LoadPair(ctx, f.store)
	require.NoError(t, err)
	assert.True(t, pair.Complete())
	assert.Equal(t, pair.Access, f.session.Token())
}

func TestAuthService_LoginErrors(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()

	err := f.auth.Login(ctx, "", "password123")
	assert.Equal(t, http.StatusBadRequest, responseStatus(t, err))

	err = f.auth.Login(ctx, "alice", "wrong")
	assert.True(t, backend.IsStatus(err, http.StatusUnauthorized))
	assert.False(t, f.session.Authenticated())
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))

	require.NoError(t, f.auth.Logout(ctx))

	assert.False(t, f.session.Authenticated())
	pair, err := storage.LoadPair(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.TokenPair{}, pair)
}

func TestAuthService_SessionEndClearsStore(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))

	f.session.SetToken("")

	_, err := f.store.Get(ctx, models.RefreshKey)
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestAuthService_ProfileRequiresLogin(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)

	_, err := f.auth.Profile(context.Background())

	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestAuthService_Profile(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))

	user, err := f.auth.Profile(ctx)

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsStudent)
	assert.Zero(t, f.dev.RefreshCalls())
}

func TestAuthService_ExpiredAccessRefreshedTransparently(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))
	before := f.session.Token()

	f.clock.Advance(3 * time.Minute)
	user, err := f.auth.Profile(ctx)

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.EqualValues(t, 1, f.dev.RefreshCalls())
	assert.NotEqual(t, before, f.session.Token())
}

func TestAuthService_RejectedRefreshLogsOut(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))

	f.dev.SetRejectRefresh(true)
	f.clock.Advance(3 * time.Minute)
	_, err := f.auth.Profile(ctx)

	require.Error(t, err)
	assert.True(t, backend.IsStatus(err, http.StatusUnauthorized), "request went out anonymous")
	assert.False(t, f.session.Authenticated())
	_, err = f.store.Get(ctx, models.AccessKey)
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestAuthService_RefusedAccessTokenLogsOut(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()
	forged := models.TokenPair{
		Access:  makeTokenWithKey(t, time.Now().Add(time.Hour), []byte("not the backend's key")),
		Refresh: "r0",
	}
	require.NoError(t, f.store.SavePair(ctx, forged))
	f.session.SetToken(forged.Access)

	_, err := f.auth.Profile(ctx)

	require.Error(t, err)
	assert.False(t, f.session.Authenticated())
	_, err = f.store.Get(ctx, models.RefreshKey)
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)
	ctx := context.Background()

	_, err := f.auth.UpdateProfile(ctx, models.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, f.auth.Login(ctx, "alice", "password123"))
	about := "likes maths"
	user, err := f.auth.UpdateProfile(ctx, models.ProfileUpdate{About: &about})

	require.NoError(t, err)
	assert.Equal(t, about, user.About)
}

func TestAuthService_Subjects(t *testing.T) {
	t.Parallel()

	f := newAgentFixture(t)

	subjects, err := f.auth.Subjects(context.Background())

	require.NoError(t, err)
	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Art", "History", "Math"}, names)
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	tests := []struct {
		name   string
		req    models.RegisterRequest
		status int
	}{
		{"empty username", models.RegisterRequest{Password: "password123", Confirm: "password123", IsTeacher: &no}, http.StatusPreconditionFailed},
		{"space in username", models.RegisterRequest{Username: "a b", Password: "password123", Confirm: "password123", IsTeacher: &no}, http.StatusPreconditionFailed},
		{"short password", models.RegisterRequest{Username: "bob", Password: "short", Confirm: "short", IsTeacher: &no}, http.StatusPreconditionFailed},
		{"confirmation mismatch", models.RegisterRequest{Username: "bob", Password: "password123", Confirm: "password124", IsTeacher: &no}, http.StatusExpectationFailed},
		{"role missing", models.RegisterRequest{Username: "bob", Password: "password123", Confirm: "password123"}, http.StatusExpectationFailed},
		{"teacher without subject", models.RegisterRequest{Username: "bob", Password: "password123", Confirm: "password123", IsTeacher: &yes}, http.StatusExpectationFailed},
		{"student with subject", models.RegisterRequest{Username: "bob", Password: "password123", Confirm: "password123", IsTeacher: &no, Subject: []string{"Math"}}, http.StatusExpectationFailed},
	}

	f := newAgentFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.status, responseStatus(t, err))
		})
	}

	t.Run("teacher registers and logs in", func(t *testing.T) {
		req := models.RegisterRequest{
			Username:  "carol",
			Password:  "password123",
			Confirm:   "password123",
			IsTeacher: &yes,
			Subject:   []string{"Math"},
		}
		msg, err := f.auth.Register(context.Background(), req)
		require.NoError(t, err)
		assert.NotEmpty(t, msg)

		require.NoError(t, f.auth.Login(context.Background(), "carol", "password123"))
		user, err := f.auth.Profile(context.Background())
		require.NoError(t, err)
		assert.True(t, user.IsTeacher)
		assert.Equal(t, []string{"Math"}, user.Subject)
	})

	t.Run("taken username", func(t *testing.T) {
		req := models.RegisterRequest{Username: "alice", Password: "password123", Confirm: "password123", IsTeacher: &no}
		_, err := f.auth.Register(context.Background(), req)
		assert.True(t, backend.IsStatus(err, http.StatusConflict))
	})
}
