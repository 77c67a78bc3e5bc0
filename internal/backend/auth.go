package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rryowa/testskool_session/internal/models"
)

func (c *Client) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	var resp models.TokenPairResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, c.plain, http.MethodPost, EndpointLogin, req, &resp); err != nil {
		return models.TokenPair{}, err
	}

	pair := resp.Pair()
	if !pair.Complete() {
		return models.TokenPair{}, fmt.Errorf("%w: login answer lacks a token", ErrMalformedResponse)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token must
// be considered spent whatever the outcome.
func (c *Client) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var resp models.TokenPairResponse
	req := models.RefreshRequest{Refresh: refresh}
	if err := c.do(ctx, c.plain, http.MethodPost, EndpointRefresh, req, &resp); err != nil {
		return models.TokenPair{}, err
	}

	pair := resp.Pair()
	if !pair.Complete() {
		return models.TokenPair{}, fmt.Errorf("%w: refresh answer lacks a token", ErrMalformedResponse)
	}
	return pair, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	var resp models.MessageResponse
	if err := c.do(ctx, c.plain, http.MethodPost, EndpointRegister, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
