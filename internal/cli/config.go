package cli

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/storefront/pkg/db"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/redis"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds the storefront command configuration.
type Config struct {
	APIURL          string        `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8080"`
	Storage         string        `env:"STOREFRONT_STORAGE" envDefault:"file"`
	StoragePath     string        `env:"STOREFRONT_STORAGE_PATH"`
	RefreshSchedule string        `env:"STOREFRONT_REFRESH_SCHEDULE"`
	HTTPTimeout     time.Duration `env:"STOREFRONT_HTTP_TIMEOUT" envDefault:"15s"`
	InitDelay       time.Duration `env:"STOREFRONT_INIT_DELAY" envDefault:"0s"`
	StaleAfter      time.Duration `env:"STOREFRONT_STALE_AFTER" envDefault:"5m"`

	Redis redis.Config
	DB    db.Config
	Log   logger.Config
}

// ParseConfig reads the environment, then lets flags in args override it.
// The remaining positional arguments form the command.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, []string, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, nil, err
	}

	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "storefront API base URL")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "session storage: memory, file, redis or postgres")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "file storage location")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if cfg.Storage == StorageFile && cfg.StoragePath == "" {
		path, err := defaultStoragePath()
		if err != nil {
			return Config{}, nil, err
		}
		cfg.StoragePath = path
	}

	return cfg, fs.Args(), nil
}

func defaultStoragePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Join(errors.New("cli: resolve config dir"), err)
	}
	return filepath.Join(dir, "storefront", "session.json"), nil
}
