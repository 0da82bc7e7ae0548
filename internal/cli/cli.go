// Package cli implements the storefront command: session login and logout,
// catalog listing and cart and wishlist management against a storefront API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/storefront"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

const (
	userAgent       = "storefront-cli"
	shutdownTimeout = 5 * time.Second
)

// Usage describes the available commands.
const Usage = `usage: storefront [flags] <command> [args]

commands:
  login <username> <password>
  logout
  whoami
  products
  cart [list]
  cart add <product-id> [quantity]
  cart set <product-id> <quantity>
  cart remove <product-id>
  cart clear
  wishlist [list]
  wishlist add <product-id>
  wishlist remove <product-id>
  wishlist clear
  refresh
  health
`

// Run opens the configured storage, starts a client restoring the persisted
// session and executes the command in args, writing results to out.
func Run(ctx context.Context, cfg Config, args []string, out io.Writer, log *slog.Logger) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Join(ErrUnknownCommand, fmt.Errorf("%q", args[0]))
	}

	b, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := b.close(closeCtx); err != nil {
			log.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	opts := append([]storefront.Option{
		storefront.WithLogger(log),
		storefront.WithUserAgent(userAgent),
		storefront.WithHTTPTimeout(cfg.HTTPTimeout),
		storefront.WithInitDelay(cfg.InitDelay),
		storefront.WithStagger(0),
		storefront.WithRefreshSchedule(cfg.RefreshSchedule),
		storefront.WithStaleAfter(cfg.StaleAfter),
	}, b.opts...)

	client, err := storefront.New(cfg.APIURL, b.storage, opts...)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()
	client.WaitReady()

	return cmd(ctx, client, args[1:], out)
}

type command func(ctx context.Context, c *storefront.Client, args []string, out io.Writer) error

var commands = map[string]command{
	"login":    login,
	"logout":   logout,
	"whoami":   whoami,
	"products": products,
	"cart":     cart,
	"wishlist": wishlist,
	"refresh":  refresh,
	"health":   healthcheck,
}

func login(ctx context.Context, c *storefront.Client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return ErrUsage
	}
	if err := c.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.WaitReady()
	user, _ := c.Session().User()
	fmt.Fprintf(out, "logged in as %s\n", user.Username)
	return nil
}

func logout(ctx context.Context, c *storefront.Client, _ []string, out io.Writer) error {
	c.Logout(ctx)
	fmt.Fprintln(out, "logged out")
	return nil
}

func whoami(_ context.Context, c *storefront.Client, _ []string, out io.Writer) error {
	user, ok := c.Session().User()
	if !ok {
		return ErrNotLoggedIn
	}
	role := "customer"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(out, "%s (id %d, %s)\n", user.Username, user.ID, role)
	return nil
}

func products(ctx context.Context, c *storefront.Client, _ []string, out io.Writer) error {
	list, err := c.Products(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		stock := printer.Sprintf("%d in stock", p.Stock)
		if p.Stock == 0 {
			stock = "sold out"
		}
		fmt.Fprintf(out, "%-5d %-20s %14s  %s\n", p.ID, p.Name, formatPrice(p.Price, p.Currency), stock)
	}
	return nil
}

func cart(ctx context.Context, c *storefront.Client, args []string, out io.Writer) error {
	if !c.Session().IsAuthenticated() {
		return ErrNotLoggedIn
	}
	sub, rest := subcommand(args)
	store := c.Cart()

	switch sub {
	case "list":
		items := store.Items()
		if len(items) == 0 {
			fmt.Fprintln(out, "cart is empty")
			return nil
		}
		currency := ""
		for _, it := range items {
			name := strconv.FormatInt(it.ProductID, 10)
			if it.Product != nil {
				name, currency = it.Product.Name, it.Product.Currency
			}
			fmt.Fprintf(out, "%-5d %-20s x%-3d %14s\n", it.ProductID, name, it.Quantity, formatPrice(it.Subtotal(), currency))
		}
		printer.Fprintf(out, "total: %d items, %s\n", store.TotalCount(), formatPrice(shop.CartTotal(items), currency))
		return nil

	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return ErrUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		qty := 1
		if len(rest) == 2 {
			if qty, err = strconv.Atoi(rest[1]); err != nil {
				return errors.Join(ErrUsage, err)
			}
		}
		if err := store.Add(ctx, id, qty); err != nil {
			return err
		}

	case "set":
		if len(rest) != 2 {
			return ErrUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return errors.Join(ErrUsage, err)
		}
		if err := store.UpdateQuantity(ctx, id, qty); err != nil {
			return err
		}

	case "remove":
		if len(rest) != 1 {
			return ErrUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		if err := store.Remove(ctx, id); err != nil {
			return err
		}

	case "clear":
		if err := store.Clear(ctx); err != nil {
			return err
		}

	default:
		return errors.Join(ErrUnknownCommand, fmt.Errorf("cart %q", sub))
	}

	printer.Fprintf(out, "cart: %d items\n", store.TotalCount())
	return nil
}

func wishlist(ctx context.Context, c *storefront.Client, args []string, out io.Writer) error {
	if !c.Session().IsAuthenticated() {
		return ErrNotLoggedIn
	}
	sub, rest := subcommand(args)
	store := c.Wishlist()

	switch sub {
	case "list":
		items := store.Items()
		if len(items) == 0 {
			fmt.Fprintln(out, "wishlist is empty")
			return nil
		}
		for _, it := range items {
			name := strconv.FormatInt(it.ProductID, 10)
			if it.Product != nil {
				name = it.Product.Name
			}
			fmt.Fprintf(out, "%-5d %-20s saved %s\n", it.ProductID, name, it.AddedAt.Local().Format(time.DateOnly))
		}
		return nil

	case "add", "remove":
		if len(rest) != 1 {
			return ErrUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		if sub == "add" {
			err = store.Add(ctx, id, 1)
		} else {
			err = store.Remove(ctx, id)
		}
		if err != nil {
			return err
		}

	case "clear":
		if err := store.Clear(ctx); err != nil {
			return err
		}

	default:
		return errors.Join(ErrUnknownCommand, fmt.Errorf("wishlist %q", sub))
	}

	printer.Fprintf(out, "wishlist: %d items\n", store.TotalCount())
	return nil
}

func refresh(ctx context.Context, c *storefront.Client, _ []string, out io.Writer) error {
	if !c.Session().IsAuthenticated() {
		return ErrNotLoggedIn
	}
	if err := c.Coordinator().RefreshStale(ctx); err != nil {
		return err
	}
	printer.Fprintf(out, "cart: %d items, wishlist: %d items\n", c.Cart().TotalCount(), c.Wishlist().TotalCount())
	return nil
}

func healthcheck(ctx context.Context, c *storefront.Client, _ []string, out io.Writer) error {
	if err := c.Healthcheck(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "list", nil
	}
	return args[0], args[1:]
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Join(ErrInvalidID, fmt.Errorf("%q", raw))
	}
	return id, nil
}
