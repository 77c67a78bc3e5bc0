package devbackend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rryowa/testskool_session/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrTokenInvalid   = errors.New("token is invalid or expired")
	ErrTokenReused    = errors.New("refresh token already used")
	ErrWrongTokenType = errors.New("wrong token type")
)

type jwtClaims struct {
	TokenType string `json:"token_type"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// IssuePairAt signs a new pair for username whose access token expires at
// accessExp. The refresh token is registered as unused.
func (s *Server) IssuePairAt(username string, accessExp time.Time) (models.TokenPair, error) {
	now := s.now()

	access, err := s.sign(tokenTypeAccess, username, uuid.NewString(), now, accessExp)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshJTI := uuid.NewString()
	refreshExp := now.Add(s.cfg.RefreshTTL)
	refresh, err := s.sign(tokenTypeRefresh, username, refreshJTI, now, refreshExp)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.mu.Lock()
	s.refreshTokens[refreshJTI] = refreshEntry{username: username, expiresAt: refreshExp}
	s.mu.Unlock()

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Server) issuePair(username string) (models.TokenPair, error) {
	return s.IssuePairAt(username, s.now().Add(s.cfg.AccessTTL))
}

func (s *Server) sign(tokenType, username, jti string, now, exp time.Time) (string, error) {
	claims := &jwtClaims{
		TokenType: tokenType,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}
	return signedToken, nil
}

func (s *Server) parse(token, wantType string) (*jwtClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// rotate spends a refresh token and issues the next pair.
func (s *Server) rotate(refresh string) (models.TokenPair, error) {
	claims, err := s.parse(refresh, tokenTypeRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.mu.Lock()
	entry, ok := s.refreshTokens[claims.ID]
	if ok {
		delete(s.refreshTokens, claims.ID)
	}
	s.mu.Unlock()

	if !ok {
		return models.TokenPair{}, ErrTokenReused
	}
	return s.issuePair(entry.username)
}
