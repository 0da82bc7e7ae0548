package kvstore

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for the Postgres backend.
// Apply them with pkg/db.Migrate before using NewPostgres.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DBTX is the subset of *pgxpool.Pool used by the Postgres storage.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Storage backed by the storage_entries table.
// The namespace column plays the role of the Redis key prefix.
type Postgres struct {
	db        DBTX
	namespace string
}

// PostgresOption configures the Postgres storage.
type PostgresOption func(*Postgres)

// WithNamespace scopes all keys to the given namespace.
// Default: "default".
func WithNamespace(ns string) PostgresOption {
	return func(p *Postgres) {
		if ns != "" {
			p.namespace = ns
		}
	}
}

// NewPostgres creates a Postgres-backed storage.
func NewPostgres(db DBTX, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, namespace: "default"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

const (
	pgGetSQL = `SELECT value FROM storage_entries WHERE namespace = $1 AND key = $2`

	pgSetSQL = `INSERT INTO storage_entries (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	pgRemoveSQL = `DELETE FROM storage_entries WHERE namespace = $1 AND key = $2`
)

// Get retrieves a value by key.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := p.db.QueryRow(ctx, pgGetSQL, p.namespace, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set upserts value under key.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, pgSetSQL, p.namespace, key, value)
	return err
}

// Remove deletes key.
func (p *Postgres) Remove(ctx context.Context, key string) error {
	_, err := p.db.Exec(ctx, pgRemoveSQL, p.namespace, key)
	return err
}

var _ Storage = (*Postgres)(nil)
