package redis

import "time"

// Config holds Redis connection settings.
// Embed it in an application config parsed with caarlos0/env.
type Config struct {
	URL       string `env:"REDIS_URL"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"storefront"`

	PoolSize     int `env:"REDIS_POOL_SIZE" envDefault:"4"`
	MinIdleConns int `env:"REDIS_MIN_IDLE_CONNS" envDefault:"1"`

	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`

	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}
