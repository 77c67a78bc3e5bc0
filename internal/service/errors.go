package service

import (
	"errors"
	"fmt"

	"github.com/rryowa/testskool_session/internal/backend"
)

var (
	ErrDecode         = errors.New("token is malformed")
	ErrMissingRefresh = errors.New("refresh token is missing")
	ErrNetwork        = errors.New("token refresh: backend unreachable")
	ErrNotLoggedIn    = errors.New("not logged in")
)

// RefreshRejectedError means the backend answered the refresh POST with a
// non-2xx status.
type RefreshRejectedError struct {
	Status int
	Detail string
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("token refresh rejected with status %d: %s", e.Status, e.Detail)
}

func classifyRefreshError(err error) error {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return &RefreshRejectedError{Status: se.Status, Detail: se.Detail}
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// errorKind is a short label for logs; token values never reach the logger.
func errorKind(err error) string {
	var rejected *RefreshRejectedError
	switch {
	case errors.Is(err, ErrMissingRefresh):
		return "missing_refresh"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "store"
	}
}
