package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/storefront"
	"github.com/dmitrymomot/storefront/pkg/cache"
	"github.com/dmitrymomot/storefront/pkg/db"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

// backend is an opened storage with the client options it contributes and
// a release function.
type backend struct {
	storage kvstore.Storage
	opts    []storefront.Option
	close   func(context.Context) error
}

func noopClose(context.Context) error { return nil }

func openStorage(ctx context.Context, cfg Config, log *slog.Logger) (*backend, error) {
	switch cfg.Storage {
	case StorageMemory:
		return &backend{storage: kvstore.NewMemory(), close: noopClose}, nil

	case StorageFile:
		f, err := kvstore.OpenFile(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		log.Debug("using file storage", slog.String("path", f.Path()))
		return &backend{storage: f, close: noopClose}, nil

	case StorageRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &backend{
			storage: kvstore.NewRedis(client, kvstore.WithPrefix(cfg.Redis.KeyPrefix)),
			opts: []storefront.Option{
				storefront.WithHealthcheck("redis", redis.Healthcheck(client)),
				// The catalog is shared by every session on this redis.
				storefront.WithCatalogCache(cache.NewRedis[[]shop.Product](client, cache.WithPrefix(cfg.Redis.KeyPrefix+":catalog"))),
			},
			close: redis.Shutdown(client),
		}, nil

	case StoragePostgres:
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, pool, kvstore.Migrations, cfg.DB.MigrationsTable, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{
			storage: kvstore.NewPostgres(pool),
			opts:    []storefront.Option{storefront.WithHealthcheck("postgres", db.Healthcheck(pool))},
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil
	}

	return nil, errors.Join(ErrUnknownStorage, fmt.Errorf("%q", cfg.Storage))
}
