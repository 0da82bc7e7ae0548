package cache

import "time"

const defaultTTL = time.Minute

// Option configures a cache.
type Option func(*options)

type options struct {
	now             func() time.Time
	prefix          string
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	maxEntries      int
}

func newOptions(opts []Option) options {
	o := options{
		now:             time.Now,
		defaultTTL:      defaultTTL,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDefaultTTL sets the expiry used when Set gets a zero ttl.
// Default: 1 minute.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		if d != 0 {
			o.defaultTTL = d
		}
	}
}

// WithCleanupInterval sets how often the memory cache sweeps expired
// entries. Zero disables the sweep; expired entries are then dropped on read.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries bounds the memory cache, evicting the least recently used
// entry when full. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = max(n, 0)
	}
}

// WithPrefix namespaces redis keys as "{prefix}:{key}".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithClock overrides the memory cache's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
