package fakeapi

import "time"

// Config is the fake API server configuration.
type Config struct {
	Addr            string        `env:"FAKEAPI_ADDR" envDefault:":8080"`
	Secret          string        `env:"FAKEAPI_SECRET" envDefault:"storefront-dev-secret"`
	TokenTTL        time.Duration `env:"FAKEAPI_TOKEN_TTL" envDefault:"1h"`
	ShutdownTimeout time.Duration `env:"FAKEAPI_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}
