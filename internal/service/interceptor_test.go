package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/models"
)

// headerRecorder is a backend that remembers the Authorization header of
// each request.
type headerRecorder struct {
	mu      sync.Mutex
	headers []string
}

func (h *headerRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.headers = append(h.headers, r.Header.Get(models.AuthorizationHeader))
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func (h *headerRecorder) Last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.headers) == 0 {
		return ""
	}
	return h.headers[len(h.headers)-1]
}

func newInterceptedClient(t *testing.T, f *refreshFixture) (*backend.Client, *headerRecorder, *AuthInterceptor) {
	t.Helper()

	rec := &headerRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	client := backend.NewClient(srv.URL, time.Second, testLogger(t))
	interceptor := NewAuthInterceptor(f.svc, testLogger(t))
	eject := interceptor.Register(client)
	t.Cleanup(eject)

	return client, rec, interceptor
}

func TestAuthInterceptor_AttachesBearer(t *testing.T) {
	t.Parallel()

	pair := models.TokenPair{Access: makeToken(t, testEpoch.Add(time.Hour)), Refresh: "r0"}
	f := newRefreshFixture(t, &pair)
	client, rec, _ := newInterceptedClient(t, f)

	require.NoError(t, client.Get(context.Background(), "/anything", nil))

	assert.Equal(t, "Bearer "+pair.Access, rec.Last())
	assert.Zero(t, f.refresher.calls.Load())
}

func TestAuthInterceptor_AnonymousWithoutToken(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t, nil)
	client, rec, _ := newInterceptedClient(t, f)

	require.NoError(t, client.Get(context.Background(), "/anything", nil))

	assert.Empty(t, rec.Last())
}

func TestAuthInterceptor_RefreshesExpiredTokenBeforeSending(t *testing.T) {
	t.Parallel()

	pair := models.TokenPair{Access: makeToken(t, testEpoch.Add(-time.Second)), Refresh: "r0"}
	f := newRefreshFixture(t, &pair)
	client, rec, _ := newInterceptedClient(t, f)

	require.NoError(t, client.Get(context.Background(), "/anything", nil))

	fresh := storedPair(t, f.store)
	assert.NotEqual(t, pair.Access, fresh.Access)
	assert.Equal(t, "Bearer "+fresh.Access, rec.Last())
	assert.EqualValues(t, 1, f.refresher.calls.Load())
}

func TestAuthInterceptor_FailedRefreshSendsAnonymous(t *testing.T) {
	t.Parallel()

	pair := models.TokenPair{Access: makeToken(t, testEpoch.Add(-time.Second)), Refresh: "r0"}
	f := newRefreshFixture(t, &pair)
	f.refresher.respond = func(string) (models.TokenPair, error) {
		return models.TokenPair{}, &backend.StatusError{Status: http.StatusUnauthorized}
	}
	client, rec, _ := newInterceptedClient(t, f)

	require.NoError(t, client.Get(context.Background(), "/anything", nil))

	assert.Empty(t, rec.Last())
	assert.Empty(t, f.session.Token())
}

func TestAuthInterceptor_RegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t, nil)
	client := backend.NewClient("http://127.0.0.1:0", time.Second, testLogger(t))
	interceptor := NewAuthInterceptor(f.svc, testLogger(t))

	interceptor.Register(client)
	interceptor.Register(client)
	assert.Equal(t, 1, client.InterceptorCount())

	interceptor.Eject()
	assert.Zero(t, client.InterceptorCount())
	interceptor.Eject()
	assert.Zero(t, client.InterceptorCount())

	eject := interceptor.Register(client)
	assert.Equal(t, 1, client.InterceptorCount())
	eject()
	assert.Zero(t, client.InterceptorCount())
}

func TestAuthInterceptor_EjectStopsAttaching(t *testing.T) {
	t.Parallel()

	pair := models.TokenPair{Access: makeToken(t, testEpoch.Add(time.Hour)), Refresh: "r0"}
	f := newRefreshFixture(t, &pair)
	client, rec, interceptor := newInterceptedClient(t, f)

	interceptor.Eject()
	require.NoError(t, client.Get(context.Background(), "/anything", nil))

	assert.Empty(t, rec.Last())
}

func TestAuthInterceptor_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	t.Parallel()

	pair := models.TokenPair{Access: makeToken(t, testEpoch.Add(-time.Minute)), Refresh: "r0"}
	f := newRefreshFixture(t, &pair)
	f.refresher.gate = make(chan struct{})
	client, rec, _ := newInterceptedClient(t, f)

	const requests = 8
	var wg sync.WaitGroup
	wg.Add(requests)
	for i := 0; i < requests; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Get(context.Background(), "/anything", nil))
		}()
	}

	require.Eventually(t, func() bool { return f.refresher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.refresher.gate)
	wg.Wait()

	assert.EqualValues(t, 1, f.refresher.calls.Load())
	fresh := storedPair(t, f.store)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.headers, requests)
	for _, h := range rec.headers {
		assert.Equal(t, "Bearer "+fresh.Access, h)
	}
}
