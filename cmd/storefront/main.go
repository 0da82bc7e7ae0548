// Command storefront manages a storefront session and its cart and wishlist
// from the terminal. The session persists between runs in the configured
// storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/storefront/internal/cli"
	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), cli.Usage)
		fs.PrintDefaults()
	}

	cfg, args, err := cli.ParseConfig(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fs.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg cli.Config, args []string) error {
	log := logger.New(cfg.Log, os.Stderr, api.RequestIDExtractor())
	defer logger.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cfg, args, os.Stdout, log); err != nil {
		log.Debug("command failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
