// Package devbackend is a stand-in for the TestSkool REST backend. It speaks
// the same token contract (login, rotating single-use refresh tokens, bearer
// protected profile) and is used for local runs and tests.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/models"
)

var ErrUserExists = errors.New("user already exists")

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type user struct {
	models.User
	passwordHash []byte
}

type refreshEntry struct {
	username  string
	expiresAt time.Time
}

type Server struct {
	echo *echo.Echo
	cfg  Config
	log  *zap.SugaredLogger
	now  func() time.Time

	mu            sync.Mutex
	users         map[string]*user
	refreshTokens map[string]refreshEntry
	subjects      []models.Subject
	nextUserID    int64

	refreshCalls  atomic.Int64
	rejectRefresh atomic.Bool
}

func New(cfg Config, log *zap.SugaredLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:          e,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
		users:         make(map[string]*user),
		refreshTokens: make(map[string]refreshEntry),
		subjects: []models.Subject{
			{ID: 1, Name: "Art"},
			{ID: 2, Name: "History"},
			{ID: 3, Name: "Math"},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.POST(backend.EndpointLogin, s.login)
	s.echo.POST(backend.EndpointRefresh, s.refresh)
	s.echo.POST(backend.EndpointRegister, s.register)
	s.echo.GET(backend.EndpointSubjectList, s.subjectList)

	authed := s.echo.Group("", s.bearerAuth)
	authed.GET(backend.EndpointMyProfile, s.myProfile)
	authed.PUT(backend.EndpointEditProfile, s.editProfile)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.log.Infof("Dev backend listening on: %s", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// AddUser creates an account directly, bypassing registration checks.
func (s *Server) AddUser(username, password string, isTeacher bool, subjects ...string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.nextUserID++
	s.users[username] = &user{
		User: models.User{
			ID:         s.nextUserID,
			Username:   username,
			IsTeacher:  isTeacher,
			IsStudent:  !isTeacher,
			Subject:    subjects,
			DateJoined: s.now().UTC(),
		},
		passwordHash: hash,
	}
	return nil
}

// RefreshCalls counts POSTs to the refresh endpoint, rejected ones included.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// SetRejectRefresh makes every refresh POST fail with 401.
func (s *Server) SetRejectRefresh(reject bool) {
	s.rejectRefresh.Store(reject)
}

func (s *Server) lookupUser(username string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	return u, ok
}

func (s *Server) hasSubjects(names []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.subjects))
	for _, subj := range s.subjects {
		known[subj.Name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := known[name]; !ok {
			return false
		}
	}
	return true
}

func (s *Server) sortedSubjects() []models.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]models.Subject(nil), s.subjects...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func bcryptMismatch(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil
}
