package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
	"github.com/rryowa/testskool_session/internal/util"
)

const (
	minPasswordLength = 8
	clearPairTimeout  = 5 * time.Second
)

// AuthService runs the login, register and logout flows on top of the token
// store and the session.
type AuthService struct {
	backend AuthBackend
	store   storage.TokenStore
	session *Session
	log     *zap.SugaredLogger

	unsubscribe func()
}

// NewAuthService also watches the session: whenever it ends, for whatever
// reason, the stored pair is cleared so store and session agree again.
func NewAuthService(backend AuthBackend, store storage.TokenStore, session *Session, log *zap.SugaredLogger) *AuthService {
	a := &AuthService{
		backend: backend,
		store:   store,
		session: session,
		log:     log,
	}
	a.unsubscribe = session.Subscribe(a.onTokenChange)
	return a
}

func (a *AuthService) Close() {
	a.unsubscribe()
}

func (a *AuthService) onTokenChange(token string) {
	if token != "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), clearPairTimeout)
	defer cancel()
	if err := a.store.ClearPair(ctx); err != nil {
		a.log.Errorw("Failed to clear token pair after logout", "error", err)
	}
}

func (a *AuthService) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return util.NewResponseError(http.StatusBadRequest, "Please provide a username and a password.")
	}

	pair, err := a.backend.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := a.store.SavePair(ctx, pair); err != nil {
		return fmt.Errorf("save token pair: %w", err)
	}
	a.session.SetToken(pair.Access)

	a.log.Infow("User logged in", "username", username)
	return nil
}

func (a *AuthService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	if err := validateRegister(req); err != nil {
		return "", err
	}

	msg, err := a.backend.Register(ctx, req)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return msg, nil
}

// Logout clears the stored pair and then the session.
func (a *AuthService) Logout(ctx context.Context) error {
	if err := a.store.ClearPair(ctx); err != nil {
		a.session.SetToken("")
		return fmt.Errorf("clear token pair: %w", err)
	}
	a.session.SetToken("")

	a.log.Info("User logged out")
	return nil
}

// Profile fetches the current user. A token the backend refuses outright
// ends the session.
func (a *AuthService) Profile(ctx context.Context) (*models.User, error) {
	if !a.session.Authenticated() {
		return nil, ErrNotLoggedIn
	}

	user, err := a.backend.MyProfile(ctx)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized && se.Detail == models.InvalidTokenDetail {
			a.log.Warnw("Backend refused the access token, logging out")
			if logoutErr := a.Logout(ctx); logoutErr != nil {
				a.log.Errorw("Logout after refused token failed", "error", logoutErr)
			}
		}
		return nil, fmt.Errorf("my profile: %w", err)
	}
	return user, nil
}

func (a *AuthService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	if !a.session.Authenticated() {
		return nil, ErrNotLoggedIn
	}

	user, err := a.backend.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (a *AuthService) Subjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := a.backend.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("subjects: %w", err)
	}
	return subjects, nil
}

// validateRegister applies the backend's registration rules up front, with
// the same status codes and messages.
func validateRegister(req models.RegisterRequest) error {
	switch {
	case req.Username == "":
		return util.NewResponseError(http.StatusPreconditionFailed, "Please provide a username.")
	case strings.Contains(req.Username, " "):
		return util.NewResponseError(http.StatusPreconditionFailed, "Space is not allowed on username.")
	case req.Password == "":
		return util.NewResponseError(http.StatusPreconditionFailed, "Please provide a password.")
	case len(req.Password) < minPasswordLength:
		return util.NewResponseError(http.StatusPreconditionFailed, "Password must be at least 8 characters.")
	case req.Password != req.Confirm:
		return util.NewResponseError(http.StatusExpectationFailed, "Password and confirmation didn't match.")
	case req.IsTeacher == nil:
		return util.NewResponseError(http.StatusExpectationFailed, "Choose one field: student or teacher.")
	case *req.IsTeacher && len(req.Subject) == 0:
		return util.NewResponseError(http.StatusExpectationFailed, "Please select your subject(s) (ex: \"Math\", \"Art\" ...).")
	case !*req.IsTeacher && len(req.Subject) > 0:
		return util.NewResponseError(http.StatusExpectationFailed, "Only teachers can choose a subject.")
	}
	return nil
}
