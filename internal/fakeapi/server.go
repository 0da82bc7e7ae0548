package fakeapi

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

const readinessCacheFor = time.Second

type account struct {
	password string
	user     session.User
}

// Server is an in-memory storefront API. It is safe for concurrent use.
type Server struct {
	logger    *slog.Logger
	now       func() time.Time
	router    chi.Router
	readiness *health.Readiness
	accounts  map[string]account
	products  []shop.Product
	carts     map[int64][]shop.CartItem
	wishlists map[int64][]shop.WishlistItem
	revoked   map[string]struct{}
	faults    map[string][]int
	counts    map[string]int
	secret    []byte
	tokenTTL  time.Duration
	mu        sync.Mutex
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a seeded Server.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}

	s := &Server{
		logger:    logger.NewNope(),
		now:       time.Now,
		accounts:  make(map[string]account),
		products:  seedProducts(),
		carts:     make(map[int64][]shop.CartItem),
		wishlists: make(map[int64][]shop.WishlistItem),
		revoked:   make(map[string]struct{}),
		faults:    make(map[string][]int),
		counts:    make(map[string]int),
		secret:    []byte(cfg.Secret),
		tokenTTL:  cfg.TokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, a := range seedUsers(s.now()) {
		s.accounts[a.user.Username] = a
	}

	s.readiness = health.NewReadiness(health.Checks{"catalog": s.catalogReady}, readinessCacheFor, health.WithLogger(s.logger))
	s.router = s.routes()
	return s, nil
}

// Drain makes the readiness endpoint report the server as going away.
func (s *Server) Drain() {
	s.readiness.Drain()
}

func (s *Server) catalogReady(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		return ErrEmptyCatalog
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/health/live", health.Live)
	r.Method(http.MethodGet, "/health/ready", s.readiness)

	s.handle(r, http.MethodPost, "/auth/login", s.login)
	s.handle(r, http.MethodGet, "/products", s.listProducts)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		s.handle(r, http.MethodPost, "/auth/logout", s.logout)
		s.handle(r, http.MethodGet, "/auth/me", s.me)

		s.handle(r, http.MethodGet, "/cart", s.listCart)
		s.handle(r, http.MethodDelete, "/cart", s.clearCart)
		s.handle(r, http.MethodPost, "/cart/items", s.addCartItem)
		s.handle(r, http.MethodPut, "/cart/items/{id}", s.updateCartItem)
		s.handle(r, http.MethodDelete, "/cart/items/{id}", s.removeCartItem)

		s.handle(r, http.MethodGet, "/wishlist", s.listWishlist)
		s.handle(r, http.MethodDelete, "/wishlist", s.clearWishlist)
		s.handle(r, http.MethodPost, "/wishlist/items", s.addWishlistItem)
		s.handle(r, http.MethodDelete, "/wishlist/items/{id}", s.removeWishlistItem)
	})

	return r
}

// handle registers h under "METHOD pattern", which is also the route name
// used by FailNext and Requests.
func (s *Server) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	route := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.counts[route]++
		var status int
		if queue := s.faults[route]; len(queue) > 0 {
			status, s.faults[route] = queue[0], queue[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			s.logger.InfoContext(req.Context(), "injected fault", slog.String("route", route), slog.Int("status", status))
			writeError(w, status, "injected fault")
			return
		}
		h(w, req)
	}))
}

// FailNext makes the next request to route answer status. Calls queue up.
// route has the form "METHOD /pattern", for example "PUT /cart/items/{id}".
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], status)
}

// Requests returns how many requests reached route, faulted ones included.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

// AddUser registers an account.
func (s *Server) AddUser(password string, user session.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Username] = account{password: password, user: user}
}

// Cart returns a copy of the server-side cart of userID.
func (s *Server) Cart(userID int64) []shop.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.carts[userID])
}

// Wishlist returns a copy of the server-side wishlist of userID.
func (s *Server) Wishlist(userID int64) []shop.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.wishlists[userID])
}

func (s *Server) productLocked(id int64) (shop.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return shop.Product{}, false
}

func (s *Server) userLocked(id int64) (session.User, bool) {
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return session.User{}, false
}
