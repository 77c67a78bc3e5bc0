package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/storage"
	"github.com/rryowa/testskool_session/internal/util"
)

const (
	rotateKey             = "rotate"
	defaultRefreshTimeout = 10 * time.Second
)

type Clock func() time.Time

// RefreshOutcome tells the scheduler when to look again. Zero means the
// session is over and nothing should be scheduled.
type RefreshOutcome struct {
	NextDelay time.Duration
}

func (o RefreshOutcome) SessionEnded() bool {
	return o.NextDelay == 0
}

type RefreshOption func(*RefreshService)

func WithClock(now Clock) RefreshOption {
	return func(s *RefreshService) { s.now = now }
}

func WithSafetyMargin(d time.Duration) RefreshOption {
	return func(s *RefreshService) { s.margin = d }
}

func WithMinDelay(d time.Duration) RefreshOption {
	return func(s *RefreshService) { s.minDelay = d }
}

func WithRefreshTimeout(d time.Duration) RefreshOption {
	return func(s *RefreshService) { s.refreshTimeout = d }
}

// RefreshService owns the token pair lifecycle: it decides when a refresh is
// due, performs it, and ends the session when it cannot.
//
// At most one refresh POST is in flight at a time; concurrent callers share it.
type RefreshService struct {
	store   storage.TokenStore
	decoder *TokenDecoder
	backend TokenRefresher
	session TokenSetter
	log     *zap.SugaredLogger

	now            Clock
	margin         time.Duration
	minDelay       time.Duration
	refreshTimeout time.Duration

	group singleflight.Group
}

func NewRefreshService(
	store storage.TokenStore,
	backend TokenRefresher,
	session TokenSetter,
	log *zap.SugaredLogger,
	opts ...RefreshOption,
) *RefreshService {
	s := &RefreshService{
		store:          store,
		decoder:        NewTokenDecoder(),
		backend:        backend,
		session:        session,
		log:            log,
		now:            time.Now,
		margin:         util.DefaultSafetyMargin,
		minDelay:       util.DefaultMinDelay,
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshIfNeeded is the scheduler's entry point. It treats the access token
// as expiring one safety margin before its exp claim.
func (s *RefreshService) RefreshIfNeeded(ctx context.Context) RefreshOutcome {
	if ctx.Err() != nil {
		return RefreshOutcome{}
	}

	pair, err := storage.LoadPair(ctx, s.store)
	if err != nil {
		if ctx.Err() == nil {
			s.endSession(err)
		}
		return RefreshOutcome{}
	}
	if !pair.Complete() {
		s.log.Debugw("No complete token pair stored", "access", pair.Access != "", "refresh", pair.Refresh != "")
		s.session.SetToken("")
		return RefreshOutcome{}
	}

	now := s.now()
	claims, err := s.decoder.Decode(pair.Access)
	if err == nil {
		localExpiry := claims.ExpiresAt().Add(-s.margin)
		if now.Before(localExpiry) {
			return RefreshOutcome{NextDelay: s.delay(localExpiry, now)}
		}
	} else {
		s.log.Debugw("Stored access token is unreadable, refreshing", "error", err)
	}

	fresh, err := s.Rotate(ctx, pair.Access)
	if err != nil {
		return RefreshOutcome{}
	}

	newClaims, err := s.decoder.Decode(fresh.Access)
	if err != nil {
		s.log.Warnw("Refreshed access token is unreadable", "error", err)
		return RefreshOutcome{NextDelay: s.minDelay}
	}
	return RefreshOutcome{NextDelay: s.delay(newClaims.ExpiresAt().Add(-s.margin), now)}
}

// EnsureAccess is the per-request entry point. Unlike RefreshIfNeeded it only
// refreshes once the exp claim itself has passed. ok is false when the request
// has to go out without credentials.
func (s *RefreshService) EnsureAccess(ctx context.Context) (token string, ok bool) {
	access, err := s.store.Get(ctx, models.AccessKey)
	if err != nil {
		if !errors.Is(err, storage.ErrTokenNotFound) {
			s.log.Warnw("Failed to read access token", "error", err)
		}
		return "", false
	}
	if access == "" {
		return "", false
	}

	claims, err := s.decoder.Decode(access)
	if err == nil && !s.now().After(claims.ExpiresAt()) {
		return access, true
	}

	fresh, err := s.Rotate(ctx, access)
	if err != nil {
		return "", false
	}
	return fresh.Access, true
}

// Rotate exchanges the stored refresh token for a new pair. stale is the
// access token the caller saw; if the store already holds a different pair by
// the time the rotation runs, that pair is returned without a network call.
//
// Every failure other than the caller's own cancellation ends the session.
func (s *RefreshService) Rotate(ctx context.Context, stale string) (models.TokenPair, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(rotateKey, func() (any, error) {
		return s.rotate(detached, stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.TokenPair{}, res.Err
		}
		return res.Val.(models.TokenPair), nil
	case <-ctx.Done():
		return models.TokenPair{}, ctx.Err()
	}
}

func (s *RefreshService) rotate(ctx context.Context, stale string) (models.TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	pair, err := storage.LoadPair(ctx, s.store)
	if err != nil {
		s.endSession(err)
		return models.TokenPair{}, err
	}

	// Пока ждали своей очереди, пару мог обновить другой вызов.
	if pair.Complete() && pair.Access != stale {
		return pair, nil
	}
	if !pair.Complete() {
		s.endSession(ErrMissingRefresh)
		return models.TokenPair{}, ErrMissingRefresh
	}

	fresh, err := s.backend.Refresh(ctx, pair.Refresh)
	if err != nil {
		err = classifyRefreshError(err)
		s.endSession(err)
		return models.TokenPair{}, err
	}

	if err := s.store.SavePair(ctx, fresh); err != nil {
		err = fmt.Errorf("save refreshed pair: %w", err)
		s.endSession(err)
		return models.TokenPair{}, err
	}
	s.session.SetToken(fresh.Access)

	s.log.Infow("Token pair refreshed")
	return fresh, nil
}

func (s *RefreshService) endSession(reason error) {
	s.log.Warnw("Session ended", "kind", errorKind(reason), "error", reason)
	s.session.SetToken("")
}

func (s *RefreshService) delay(deadline, now time.Time) time.Duration {
	return max(deadline.Sub(now), s.minDelay)
}
