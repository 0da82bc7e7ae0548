// Package logger builds the slog loggers used across the client.
//
// [New] picks a JSON or text handler from [Config], injects request-scoped
// attributes through [ContextExtractor] functions, and optionally fans out
// warnings and errors to Sentry when SENTRY_DSN is set:
//
//	log := logger.New(cfg.Log, os.Stderr, api.RequestIDExtractor())
//	defer logger.Flush(2 * time.Second)
//
// Library components default to [NewNope] so nothing is printed unless a
// logger is passed in explicitly.
package logger
