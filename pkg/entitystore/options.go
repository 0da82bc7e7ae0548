package entitystore

import (
	"log/slog"
	"time"
)

// DefaultStaleAfter is the age after which a cached collection is refreshed.
const DefaultStaleAfter = 5 * time.Minute

type options struct {
	logger     *slog.Logger
	now        func() time.Time
	staleAfter time.Duration
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger for store events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for UpdatedAt and staleness.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStaleAfter sets the staleness threshold. Default: 5 minutes.
func WithStaleAfter(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.staleAfter = d
		}
	}
}
