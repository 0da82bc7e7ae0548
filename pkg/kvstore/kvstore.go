package kvstore

import (
	"context"
	"encoding/json"
	"errors"
)

// Storage is a durable string-keyed byte store.
//
// Implementations never expire entries on their own; staleness is an
// application concern. Remove on a missing key is not an error.
type Storage interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key.
	Remove(ctx context.Context, key string) error
}

// GetJSON reads key and decodes it into V.
// Returns ErrNotFound for missing keys and ErrUnmarshal for malformed payloads.
func GetJSON[V any](ctx context.Context, s Storage, key string) (V, error) {
	var v V

	data, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}

	return v, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON[V any](ctx context.Context, s Storage, key string, v V) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}
	return s.Set(ctx, key, data)
}

// Healthcheck returns a health check closure that round-trips a probe key.
// Compatible with health.CheckFunc.
func Healthcheck(s Storage) func(ctx context.Context) error {
	const probeKey = "__kvstore_probe"

	return func(ctx context.Context) error {
		if s == nil {
			return ErrHealthcheckFailed
		}
		if err := s.Set(ctx, probeKey, []byte("1")); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if _, err := s.Get(ctx, probeKey); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if err := s.Remove(ctx, probeKey); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
