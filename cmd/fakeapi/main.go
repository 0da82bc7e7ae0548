// Command fakeapi serves an in-memory storefront API for local development
// and end-to-end runs of the storefront command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/storefront/internal/fakeapi"
	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

type config struct {
	Server fakeapi.Config
	Log    logger.Config
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	log := logger.New(cfg.Log, os.Stdout, api.RequestIDExtractor())
	defer logger.Flush(2 * time.Second)

	srv, err := fakeapi.New(cfg.Server, fakeapi.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fakeapi.Serve(ctx, cfg.Server, srv)
}
