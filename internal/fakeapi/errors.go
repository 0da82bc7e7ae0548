package fakeapi

import "errors"

var (
	// ErrInvalidToken is returned for missing, malformed, expired or revoked tokens.
	ErrInvalidToken = errors.New("fakeapi: invalid token")

	// ErrEmptySecret is returned by New when no signing secret is configured.
	ErrEmptySecret = errors.New("fakeapi: empty signing secret")

	// ErrEmptyCatalog is reported by the readiness check when no product is seeded.
	ErrEmptyCatalog = errors.New("fakeapi: empty catalog")
)
