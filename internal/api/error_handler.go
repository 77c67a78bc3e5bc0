package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/controller"
	"github.com/rryowa/testskool_session/internal/service"
	"github.com/rryowa/testskool_session/internal/util"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, reason := classify(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
		}
		if err := c.JSON(status, controller.ErrorResponse{Reason: reason}); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func classify(err error) (int, string) {
	var (
		respErr   util.ResponseError
		statusErr *backend.StatusError
		httpErr   *echo.HTTPError
	)

	switch {
	case errors.As(err, &respErr):
		return respErr.Status, respErr.Msg
	case errors.Is(err, service.ErrNotLoggedIn):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &statusErr):
		reason := statusErr.Detail
		if reason == "" {
			reason = http.StatusText(statusErr.Status)
		}
		return statusErr.Status, reason
	case errors.Is(err, backend.ErrNetwork):
		return http.StatusBadGateway, "backend unreachable"
	case errors.As(err, &httpErr):
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
