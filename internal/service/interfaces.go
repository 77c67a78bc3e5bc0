package service

import (
	"context"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/models"
)

type TokenRefresher interface {
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)
}

type AuthBackend interface {
	Login(ctx context.Context, username, password string) (models.TokenPair, error)
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	MyProfile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error)
	Subjects(ctx context.Context) ([]models.Subject, error)
}

type InterceptorRegistry interface {
	Use(fn backend.RequestInterceptor) backend.InterceptorID
	Eject(id backend.InterceptorID)
}

type TokenSetter interface {
	SetToken(token string)
}

type SessionRefresher interface {
	RefreshIfNeeded(ctx context.Context) RefreshOutcome
}

type SessionWatcher interface {
	Subscribe(fn func(token string)) (unsubscribe func())
}
