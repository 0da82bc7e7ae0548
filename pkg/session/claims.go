package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry decodes the exp claim without verifying the signature; the
// server remains the authority on validity. ok is false when the token is
// not a JWT or carries no usable exp.
func tokenExpiry(token string) (exp time.Time, ok bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	date, err := parsed.Claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}
