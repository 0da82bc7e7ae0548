package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/cache"
	"github.com/dmitrymomot/storefront/pkg/coordinator"
	"github.com/dmitrymomot/storefront/pkg/entitystore"
	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

// Store names, also used as envelope key prefixes.
const (
	CartStore     = "cart"
	WishlistStore = "wishlist"
)

// DefaultCatalogTTL is how long the product catalog is served from cache.
const DefaultCatalogTTL = time.Minute

const catalogKey = "products"

// ErrNilStorage is returned by New without a durable storage.
var ErrNilStorage = errors.New("storefront: nil storage")

// Client wires the session manager, the cart and wishlist stores and the
// initialization coordinator over one API client and one durable storage.
type Client struct {
	logger       *slog.Logger
	httpClient   *http.Client
	storage      kvstore.Storage
	api          *api.Client
	session      *session.Manager
	cart         *entitystore.Store[shop.CartItem]
	wishlist     *entitystore.Store[shop.WishlistItem]
	coord        *coordinator.Coordinator
	checks       health.Checks
	catalog      *cache.Loader[[]shop.Product]
	catalogCache cache.Cache[[]shop.Product]
	ownedCache   cache.Cache[[]shop.Product]
	initDelay    *time.Duration
	stagger      *time.Duration

	userAgent       string
	refreshSchedule string
	httpTimeout     time.Duration
	staleAfter      time.Duration
	catalogTTL      time.Duration
	skipValidation  bool

	closeOnce sync.Once
}

// New creates a Client for the API at baseURL persisting into storage.
// Call Start before use and Close when done.
func New(baseURL string, storage kvstore.Storage, opts ...Option) (*Client, error) {
	if storage == nil {
		return nil, ErrNilStorage
	}

	c := &Client{
		logger:     logger.NewNope(),
		storage:    storage,
		checks:     make(health.Checks),
		catalogTTL: DefaultCatalogTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	apiClient, err := api.New(baseURL,
		api.WithHTTPClient(c.httpClient),
		api.WithTimeout(c.httpTimeout),
		api.WithLogger(c.logger),
		api.WithUserAgent(c.userAgent),
		api.WithAuthorization(
			func() string { return c.session.AuthHeader() },
			func(used string) { c.session.InvalidateIfCurrent(used) },
		),
	)
	if err != nil {
		return nil, err
	}
	c.api = apiClient

	sessOpts := []session.Option{session.WithLogger(c.logger)}
	if c.skipValidation {
		sessOpts = append(sessOpts, session.WithoutBackgroundValidation())
	}
	c.session = session.NewManager(apiClient.Auth(), storage, sessOpts...)

	storeOpts := []entitystore.Option{
		entitystore.WithLogger(c.logger),
		entitystore.WithStaleAfter(c.staleAfter),
	}
	c.cart = entitystore.New[shop.CartItem](CartStore, apiClient.Cart(), c.session, storage, storeOpts...)
	c.wishlist = entitystore.New[shop.WishlistItem](WishlistStore, apiClient.Wishlist(), c.session, storage, storeOpts...)

	coordOpts := []coordinator.Option{
		coordinator.WithLogger(c.logger),
		coordinator.WithRefreshSchedule(c.refreshSchedule),
	}
	if c.initDelay != nil {
		coordOpts = append(coordOpts, coordinator.WithInitDelay(*c.initDelay))
	}
	if c.stagger != nil {
		coordOpts = append(coordOpts, coordinator.WithStagger(*c.stagger))
	}
	c.coord, err = coordinator.New(c.session, []coordinator.Store{c.cart, c.wishlist}, coordOpts...)
	if err != nil {
		return nil, err
	}

	if c.catalogCache == nil {
		c.ownedCache = cache.NewMemory[[]shop.Product](cache.WithDefaultTTL(c.catalogTTL))
		c.catalogCache = c.ownedCache
	}
	c.catalog = cache.NewLoader(c.catalogCache, c.catalogTTL)

	c.checks["storage"] = kvstore.Healthcheck(storage)
	c.checks["api"] = apiClient.Ping

	return c, nil
}

// Start begins following the session and restores the persisted one.
// Store initialization continues in the background; use WaitReady to block
// until it settles.
func (c *Client) Start(ctx context.Context) error {
	if err := c.coord.Start(ctx); err != nil {
		return err
	}
	c.session.Restore(ctx)
	return nil
}

// WaitReady blocks until in-flight store initializations finish.
func (c *Client) WaitReady() {
	c.coord.Wait()
}

// Close stops the coordinator and the session manager. It is idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.coord.Stop()
		c.session.Close()
		if c.ownedCache != nil {
			_ = c.ownedCache.Close()
		}
	})
}

// Login authenticates and starts a session. The stores initialize in the
// background.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.session.Login(ctx, session.Credentials{Username: username, Password: password})
}

// Logout ends the session and clears cached collections.
func (c *Client) Logout(ctx context.Context) {
	c.session.Logout(ctx)
}

// Healthcheck runs the storage, API and registered checks in parallel.
func (c *Client) Healthcheck(ctx context.Context) error {
	return health.Run(ctx, c.checks, health.WithLogger(c.logger)).Err()
}

// Products lists the catalog. Results are cached for the catalog TTL, and
// concurrent callers share one request.
func (c *Client) Products(ctx context.Context) ([]shop.Product, error) {
	return c.catalog.Load(ctx, catalogKey, c.api.Products)
}

// InvalidateCatalog drops the cached catalog.
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	return c.catalog.Invalidate(ctx, catalogKey)
}

// Session returns the session manager.
func (c *Client) Session() *session.Manager { return c.session }

// Cart returns the cart store.
func (c *Client) Cart() *entitystore.Store[shop.CartItem] { return c.cart }

// Wishlist returns the wishlist store.
func (c *Client) Wishlist() *entitystore.Store[shop.WishlistItem] { return c.wishlist }

// Coordinator returns the initialization coordinator.
func (c *Client) Coordinator() *coordinator.Coordinator { return c.coord }

// API returns the underlying API client.
func (c *Client) API() *api.Client { return c.api }
