package db

import "time"

// Config holds PostgreSQL settings for the postgres storage backend.
// Embed it in an application config parsed with caarlos0/env.
type Config struct {
	ConnectionString string `env:"DATABASE_CONN_URL"`
	MigrationsTable  string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"storefront_migrations"`

	MaxOpenConns    int32         `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"4"`
	MinConns        int32         `env:"DATABASE_MIN_CONNS" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m"`

	RetryAttempts int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"2s"`
}
