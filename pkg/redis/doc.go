// Package redis connects the Redis-backed durable storage.
//
// [Connect] parses a redis:// or rediss:// URL, applies pool and timeout
// settings from [Config], and retries the initial PING with linear backoff:
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	defer redis.Shutdown(client)(ctx)
//
//	st := kvstore.NewRedis(client, kvstore.WithPrefix(cfg.Redis.KeyPrefix))
//
// [Healthcheck] returns a closure compatible with health.CheckFunc.
package redis
