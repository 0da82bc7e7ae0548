package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis is a Storage backed by Redis. Keys never expire.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures the Redis storage.
type RedisOption func(*Redis)

// WithPrefix sets a key prefix for all operations.
// Keys are stored as "{prefix}:{key}", which keeps several clients
// sharing one Redis database apart.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis creates a Redis-backed storage.
// The client should be obtained from pkg/redis.Open; its lifecycle stays
// with the caller.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get retrieves a value by key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores value under key without expiration.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefixedKey(key), value, 0).Err()
}

// Remove deletes key.
func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefixedKey(key)).Err()
}

func (r *Redis) prefixedKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

var _ Storage = (*Redis)(nil)
