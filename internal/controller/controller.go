package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/service"
	"github.com/rryowa/testskool_session/internal/util"
)

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
	session     *service.Session
}

func NewController(logger *zap.SugaredLogger, authService *service.AuthService, session *service.Session) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
		session:     session,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (GET /api/session).
func (c *Controller) GetSession(ctx echo.Context) error {
	token := c.session.Token()
	return ctx.JSON(http.StatusOK, models.SessionState{
		Authenticated: token != "",
		Token:         token,
	})
}

// (POST /api/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "malformed login request")
	}

	if err := c.authService.Login(ctx.Request().Context(), req.Username, req.Password); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (POST /api/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "malformed register request")
	}

	msg, err := c.authService.Register(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, models.MessageResponse{Message: msg})
}

// (POST /api/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.authService.Logout(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (GET /api/profile).
func (c *Controller) GetProfile(ctx echo.Context) error {
	user, err := c.authService.Profile(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, user)
}

// (PUT /api/profile).
func (c *Controller) UpdateProfile(ctx echo.Context) error {
	var upd models.ProfileUpdate
	if err := ctx.Bind(&upd); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "malformed profile update")
	}

	user, err := c.authService.UpdateProfile(ctx.Request().Context(), upd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, user)
}

// (GET /api/subjects).
func (c *Controller) ListSubjects(ctx echo.Context) error {
	subjects, err := c.authService.Subjects(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subjects)
}
