package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork           = errors.New("backend unreachable")
	ErrMalformedResponse = errors.New("malformed backend response")
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
