package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// StatusDraining is reported by a Readiness after Drain.
const StatusDraining = "draining"

// Live answers every request with a healthy JSON status. The storefront
// client pings it to tell a reachable API from a dead one.
func Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &Response{Status: StatusHealthy})
}

// Readiness serves the readiness endpoint of the development API.
//
// Checks run at most once per cache window, and concurrent requests within
// a window share one run. Once drained it answers 503 without running any
// check, so clients stop sending traffic before the server shuts down.
type Readiness struct {
	checks   Checks
	opts     []Option
	cacheFor time.Duration
	now      func() time.Time

	draining atomic.Bool

	mu     sync.Mutex
	last   *Response
	lastAt time.Time
}

// NewReadiness returns a Readiness over checks. A cacheFor of zero runs the
// checks on every request.
func NewReadiness(checks Checks, cacheFor time.Duration, opts ...Option) *Readiness {
	return &Readiness{
		checks:   checks,
		opts:     opts,
		cacheFor: max(cacheFor, 0),
		now:      time.Now,
	}
}

// Drain marks the server as going away. It cannot be undone.
func (r *Readiness) Drain() {
	r.draining.Store(true)
}

// ServeHTTP implements http.Handler.
func (r *Readiness) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, &Response{Status: StatusDraining})
		return
	}

	resp := r.result(req.Context())
	status := http.StatusOK
	if !resp.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (r *Readiness) result(ctx context.Context) *Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last != nil && r.now().Sub(r.lastAt) < r.cacheFor {
		return r.last
	}
	r.last = Run(ctx, r.checks, r.opts...)
	r.lastAt = r.now()
	return r.last
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
