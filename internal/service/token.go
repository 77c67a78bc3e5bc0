package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rryowa/testskool_session/internal/models"
)

// TokenDecoder reads the exp claim of a bearer token without verifying its
// signature. The agent has no key; the backend is the one that verifies.
type TokenDecoder struct {
	parser *jwt.Parser
}

func NewTokenDecoder() *TokenDecoder {
	return &TokenDecoder{parser: jwt.NewParser()}
}

func (d *TokenDecoder) Decode(token string) (models.Claims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return models.Claims{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if claims.ExpiresAt == nil {
		return models.Claims{}, fmt.Errorf("%w: missing exp claim", ErrDecode)
	}

	return models.Claims{Exp: claims.ExpiresAt.Unix()}, nil
}
