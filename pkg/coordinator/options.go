package coordinator

import (
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithLogger sets the logger for coordinator events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithInitDelay sets how long to wait after a session becomes authenticated
// before the first store is initialized. Zero initializes immediately.
func WithInitDelay(d time.Duration) Option {
	return func(c *Coordinator) error {
		if d >= 0 {
			c.delay = d
		}
		return nil
	}
}

// WithStagger sets the extra delay added per store position.
func WithStagger(d time.Duration) Option {
	return func(c *Coordinator) error {
		if d >= 0 {
			c.stagger = d
		}
		return nil
	}
}

// WithRefreshSchedule enables the periodic refresher. expr is a standard
// five-field cron expression or a descriptor such as "@every 1m" or
// "@hourly". An empty expr leaves the refresher disabled.
func WithRefreshSchedule(expr string) Option {
	return func(c *Coordinator) error {
		if expr == "" {
			return nil
		}
		schedule, err := parseSchedule(expr)
		if err != nil {
			return errors.Join(ErrInvalidSchedule, err)
		}
		c.schedule = schedule
		return nil
	}
}

func parseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(expr)
}
