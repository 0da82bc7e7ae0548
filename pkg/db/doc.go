// Package db connects the PostgreSQL-backed durable storage.
//
// [Connect] builds a pgx pool from [Config] with startup retries, [Migrate]
// applies goose migrations from an embedded filesystem (see
// kvstore.Migrations), and [Healthcheck] returns a ping closure compatible
// with health.CheckFunc.
//
// Settings are read from the environment:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: storefront_migrations)
//	DATABASE_MAX_OPEN_CONNS     - maximum pool size (default: 4)
//	DATABASE_MIN_CONNS          - minimum idle connections (default: 1)
//	DATABASE_RETRY_ATTEMPTS     - connection attempts at startup (default: 3)
//	DATABASE_RETRY_INTERVAL     - base backoff between attempts (default: 2s)
package db
