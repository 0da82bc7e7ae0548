package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a key-value cache with per-entry expiry.
//
// A zero ttl passed to Set means the cache's default; a negative ttl means
// the entry never expires.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Loader fills a Cache on misses. Concurrent misses for one key share a
// single call to the load function.
type Loader[V any] struct {
	cache Cache[V]
	group singleflight.Group
	ttl   time.Duration
}

// NewLoader returns a Loader caching loaded values in c for ttl.
func NewLoader[V any](c Cache[V], ttl time.Duration) *Loader[V] {
	return &Loader[V]{cache: c, ttl: ttl}
}

// Load returns the cached value for key, or calls fn and caches its result.
// A failed fn is not cached. A failing cache write does not fail the call.
func (l *Loader[V]) Load(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	if v, err := l.cache.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(ctx, key, val, l.ttl)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate drops key so the next Load calls fn again.
func (l *Loader[V]) Invalidate(ctx context.Context, key string) error {
	return l.cache.Delete(ctx, key)
}
