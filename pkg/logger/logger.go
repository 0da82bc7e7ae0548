package logger

import (
	"context"
	"io"
	"log/slog"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// New builds a logger writing to w according to cfg.
// When cfg.SentryDSN is set, warnings and errors are also forwarded to Sentry;
// a Sentry initialization failure degrades to local output only.
func New(cfg Config, w io.Writer, extractors ...ContextExtractor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.level()}

	var local slog.Handler
	if cfg.Format == "text" {
		local = slog.NewTextHandler(w, opts)
	} else {
		local = slog.NewJSONHandler(w, opts)
	}

	handler := local
	if cfg.SentryDSN != "" {
		remote, err := newSentryHandler(cfg)
		if err != nil {
			slog.New(local).Error("failed to initialize sentry", slog.String("error", err.Error()))
		} else {
			handler = fanout(local, remote)
		}
	}

	return slog.New(withContext(handler, extractors...))
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNope returns l, or a discarding logger when l is nil.
func OrNope(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NewNope()
	}
	return l
}
