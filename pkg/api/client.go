package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "storefront-client/1"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client talks JSON to the storefront HTTP API. It is safe for concurrent use.
type Client struct {
	http       *http.Client
	logger     *slog.Logger
	authHeader func() string
	onRejected func(string)
	baseURL    *url.URL
	userAgent  string
	timeout    time.Duration
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		http:      &http.Client{},
		logger:    logger.NewNope(),
		baseURL:   u,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "api"))

	return c, nil
}

// Auth returns the authentication service.
func (c *Client) Auth() *AuthService {
	return &AuthService{c: c}
}

// Cart returns the cart repository.
func (c *Client) Cart() *CartService {
	return &CartService{c: c}
}

// Wishlist returns the wishlist repository.
func (c *Client) Wishlist() *WishlistService {
	return &WishlistService{c: c}
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]shop.Product, error) {
	var out []shop.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out, request{}); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that the API answers its liveness endpoint.
// Compatible with health.CheckFunc.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health/live", nil, nil, request{})
}

// request carries per-call authorization.
type request struct {
	// token, when set, authorizes the call explicitly.
	token string
	// session authorizes the call with the configured header func and
	// reports rejections through onRejected.
	session bool
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, r request) error {
	ctx, reqID := ensureRequestID(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var usedHeader string
	switch {
	case r.token != "":
		usedHeader = "Bearer " + r.token
	case r.session && c.authHeader != nil:
		usedHeader = c.authHeader()
	}
	if usedHeader != "" {
		req.Header.Set("Authorization", usedHeader)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return errors.Join(ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readError(resp, method, path)
		if r.session && usedHeader != "" && c.onRejected != nil &&
			(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			c.onRejected(usedHeader)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrDecodeResponse, err)
	}
	return nil
}

func readError(resp *http.Response, method, path string) *Error {
	apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}
