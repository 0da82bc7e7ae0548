package session

import (
	"errors"
	"net/http"
)

// Session errors.
var (
	// ErrInvalidLoginResponse is returned when the authenticator reports success
	// but hands back an empty token or user.
	ErrInvalidLoginResponse = errors.New("session: invalid login response")

	// ErrTokenExpired is returned by Login when the issued token is already past
	// its expiry.
	ErrTokenExpired = errors.New("session: token expired")

	// ErrUnauthorized marks authorization-class failures for authenticators that
	// do not expose an HTTP status.
	ErrUnauthorized = errors.New("session: unauthorized")
)

// IsAuthorizationError reports whether err means the credential was rejected
// (401/403 or ErrUnauthorized), as opposed to a transport or server failure.
func IsAuthorizationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}

	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}
	return false
}
