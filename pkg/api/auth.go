package api

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/session"
)

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

// AuthService implements session.Authenticator over HTTP.
type AuthService struct {
	c *Client
}

var _ session.Authenticator = (*AuthService)(nil)

// Login exchanges credentials for a token.
func (s *AuthService) Login(ctx context.Context, creds session.Credentials) (string, session.User, error) {
	var out LoginResponse
	if err := s.c.do(ctx, http.MethodPost, "/auth/login", creds, &out, request{}); err != nil {
		return "", session.User{}, err
	}
	return out.Token, out.User, nil
}

// Logout revokes token on the server.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, request{token: token})
}

// CurrentUser returns the user token belongs to.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (session.User, error) {
	var out session.User
	if err := s.c.do(ctx, http.MethodGet, "/auth/me", nil, &out, request{token: token}); err != nil {
		return session.User{}, err
	}
	return out, nil
}
