package service

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/models"
)

type accessProvider interface {
	EnsureAccess(ctx context.Context) (string, bool)
}

// AuthInterceptor puts the current bearer token on outgoing backend requests,
// refreshing it first if it has expired. When no valid token can be had the
// request goes out anonymous and the backend's 401 speaks for itself.
type AuthInterceptor struct {
	access accessProvider
	log    *zap.SugaredLogger

	mu       sync.Mutex
	registry InterceptorRegistry
	id       backend.InterceptorID
}

func NewAuthInterceptor(access accessProvider, log *zap.SugaredLogger) *AuthInterceptor {
	return &AuthInterceptor{access: access, log: log}
}

func (i *AuthInterceptor) Intercept(req *http.Request) error {
	token, ok := i.access.EnsureAccess(req.Context())
	if !ok {
		return nil
	}
	req.Header.Set(models.AuthorizationHeader, models.BearerPrefix+token)
	return nil
}

// Register installs the interceptor once. Further calls are no-ops until
// Eject; the returned func ejects it.
func (i *AuthInterceptor) Register(registry InterceptorRegistry) (eject func()) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.registry == nil {
		i.registry = registry
		i.id = registry.Use(i.Intercept)
		i.log.Debugw("Auth interceptor registered", "id", i.id)
	}
	return i.Eject
}

func (i *AuthInterceptor) Eject() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.registry == nil {
		return
	}
	i.registry.Eject(i.id)
	i.log.Debugw("Auth interceptor ejected", "id", i.id)
	i.registry = nil
	i.id = 0
}
