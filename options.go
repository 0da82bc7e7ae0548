package storefront

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/storefront/pkg/cache"
	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the http.Client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHTTPTimeout sets the per-request API timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpTimeout = d
		}
	}
}

// WithUserAgent sets the User-Agent of API requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithInitDelay sets the pause between authentication and the first store
// initialization.
func WithInitDelay(d time.Duration) Option {
	return func(c *Client) {
		c.initDelay = &d
	}
}

// WithStagger sets the extra delay per store during initialization.
func WithStagger(d time.Duration) Option {
	return func(c *Client) {
		c.stagger = &d
	}
}

// WithRefreshSchedule enables periodic refresh of stale collections.
// expr is a cron expression or descriptor such as "@every 1m".
func WithRefreshSchedule(expr string) Option {
	return func(c *Client) {
		c.refreshSchedule = expr
	}
}

// WithStaleAfter sets the age after which cached collections are reloaded.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Client) {
		c.staleAfter = d
	}
}

// WithoutSessionValidation skips the server round-trip after restoring a
// persisted session.
func WithoutSessionValidation() Option {
	return func(c *Client) {
		c.skipValidation = true
	}
}

// WithHealthcheck adds a named check to Healthcheck, for example the
// redis or postgres connection behind the storage.
func WithHealthcheck(name string, check health.CheckFunc) Option {
	return func(c *Client) {
		if name != "" && check != nil {
			c.checks[name] = check
		}
	}
}

// WithCatalogCache caches the product catalog in cc instead of a private
// memory cache. The caller keeps ownership of cc.
func WithCatalogCache(cc cache.Cache[[]shop.Product]) Option {
	return func(c *Client) {
		c.catalogCache = cc
	}
}

// WithCatalogTTL sets how long a fetched catalog is served from cache.
// Default: 1 minute.
func WithCatalogTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.catalogTTL = d
		}
	}
}
