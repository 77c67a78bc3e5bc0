package devbackend

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/testskool_session/internal/models"
)

const (
	userContextKey = "user"

	detailBadCredentials = "No active account found with the given credentials"
	detailRefreshInvalid = "Token is invalid or expired"
	detailNoCredentials  = "Authentication credentials were not provided."
)

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, models.DetailResponse{Detail: msg})
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, models.MessageResponse{Message: msg})
}

func (s *Server) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Malformed request.")
	}

	u, ok := s.lookupUser(req.Username)
	if !ok || bcryptMismatch(u.passwordHash, req.Password) {
		return detail(c, http.StatusUnauthorized, detailBadCredentials)
	}

	pair, err := s.issuePair(u.Username)
	if err != nil {
		s.log.Errorw("issue pair", "error", err)
		return detail(c, http.StatusInternalServerError, "Unable to issue tokens.")
	}
	return c.JSON(http.StatusOK, models.TokenPairResponse(pair))
}

func (s *Server) refresh(c echo.Context) error {
	s.refreshCalls.Add(1)

	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return detail(c, http.StatusBadRequest, "This field is required.")
	}
	if s.rejectRefresh.Load() {
		return detail(c, http.StatusUnauthorized, detailRefreshInvalid)
	}

	pair, err := s.rotate(req.Refresh)
	if err != nil {
		s.log.Debugw("refresh refused", "error", err)
		return detail(c, http.StatusUnauthorized, detailRefreshInvalid)
	}
	return c.JSON(http.StatusOK, models.TokenPairResponse(pair))
}

func (s *Server) register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusExpectationFailed, "Choose one field: student or teacher.")
	}

	switch {
	case req.Username == "":
		return message(c, http.StatusPreconditionFailed, "Please provide a username.")
	case strings.Contains(req.Username, " "):
		return message(c, http.StatusPreconditionFailed, "Space is not allowed on username.")
	}
	if _, exists := s.lookupUser(req.Username); exists {
		return message(c, http.StatusConflict, "This username is already exists.")
	}
	switch {
	case req.Password == "":
		return message(c, http.StatusPreconditionFailed, "Please provide a password.")
	case len(req.Password) < 8:
		return message(c, http.StatusPreconditionFailed, "Password must be at least 8 characters.")
	case req.Password != req.Confirm:
		return message(c, http.StatusExpectationFailed, "Password and confirmation didn't match.")
	case req.IsTeacher == nil:
		return message(c, http.StatusExpectationFailed, "Choose one field: student or teacher.")
	case *req.IsTeacher && (len(req.Subject) == 0 || !s.hasSubjects(req.Subject)):
		return message(c, http.StatusExpectationFailed, "Please select your subject(s) (ex: \"Math\", \"Art\" ...).")
	case !*req.IsTeacher && len(req.Subject) > 0:
		return message(c, http.StatusExpectationFailed, "Only teachers can choose a subject.")
	}

	if err := s.AddUser(req.Username, req.Password, *req.IsTeacher, req.Subject...); err != nil {
		if errors.Is(err, ErrUserExists) {
			return message(c, http.StatusConflict, "This username is already exists.")
		}
		return message(c, http.StatusExpectationFailed, "Unable to create user.")
	}
	return message(c, http.StatusCreated, "Account registered successfully. You are ready to log in!")
}

func (s *Server) subjectList(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sortedSubjects())
}

func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(models.AuthorizationHeader)
		if header == "" {
			return detail(c, http.StatusUnauthorized, detailNoCredentials)
		}
		token, ok := strings.CutPrefix(header, models.BearerPrefix)
		if !ok {
			return detail(c, http.StatusUnauthorized, models.InvalidTokenDetail)
		}

		claims, err := s.parse(token, tokenTypeAccess)
		if err != nil {
			return detail(c, http.StatusUnauthorized, models.InvalidTokenDetail)
		}
		u, ok := s.lookupUser(claims.Username)
		if !ok {
			return detail(c, http.StatusUnauthorized, models.InvalidTokenDetail)
		}

		c.Set(userContextKey, u)
		return next(c)
	}
}

func (s *Server) myProfile(c echo.Context) error {
	u := c.Get(userContextKey).(*user)

	s.mu.Lock()
	profile := u.User
	s.mu.Unlock()

	return c.JSON(http.StatusOK, profile)
}

func (s *Server) editProfile(c echo.Context) error {
	u := c.Get(userContextKey).(*user)

	var upd models.ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return detail(c, http.StatusBadRequest, "Malformed request.")
	}
	if len(upd.Subject) > 0 && (!u.IsTeacher || !s.hasSubjects(upd.Subject)) {
		return message(c, http.StatusExpectationFailed, "Only teachers can choose a subject.")
	}

	s.mu.Lock()
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.About != nil {
		u.About = *upd.About
	}
	if len(upd.Subject) > 0 {
		u.Subject = upd.Subject
	}
	profile := u.User
	s.mu.Unlock()

	return c.JSON(http.StatusOK, profile)
}
