// Package kvstore provides the durable key-value Storage the client core
// persists sessions and cached collections into.
//
// All backends share the [Storage] interface:
//
//   - Get(ctx, key) ([]byte, error): returns [ErrNotFound] for missing keys
//   - Set(ctx, key, value) error: replaces any previous value
//   - Remove(ctx, key) error: missing keys are not an error
//
// Entries never expire. Whether cached data is still trustworthy is decided by
// the caller (see pkg/entitystore).
//
// # Backends
//
// [NewMemory] keeps everything in process memory and suits tests and
// short-lived clients. [OpenFile] persists a single JSON document on disk so
// that state survives restarts of a CLI:
//
//	st, err := kvstore.OpenFile(filepath.Join(home, ".storefront", "state.json"))
//
// [NewRedis] and [NewPostgres] share state between processes. The Postgres
// backend needs the embedded [Migrations] applied first:
//
//	pool, _ := db.Connect(ctx, cfg.DB)
//	_ = db.Migrate(ctx, pool, kvstore.Migrations, cfg.DB.MigrationsTable, log)
//	st := kvstore.NewPostgres(pool, kvstore.WithNamespace("storefront"))
//
// # JSON helpers
//
// [GetJSON] and [SetJSON] wrap any Storage with JSON encoding:
//
//	user, err := kvstore.GetJSON[User](ctx, st, "auth_user")
//	if errors.Is(err, kvstore.ErrUnmarshal) {
//	    // malformed payload
//	}
package kvstore
