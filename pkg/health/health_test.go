package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/health"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()

		resp := health.Run(ctx, nil)
		require.True(t, resp.Healthy())
		require.NoError(t, resp.Err())
	})

	t.Run("all pass", func(t *testing.T) {
		t.Parallel()

		resp := health.Run(ctx, health.Checks{"storage": ok, "api": ok})
		require.True(t, resp.Healthy())
		require.Len(t, resp.Checks, 2)
	})

	t.Run("one failure", func(t *testing.T) {
		t.Parallel()

		resp := health.Run(ctx, health.Checks{"storage": ok, "api": failing})
		require.False(t, resp.Healthy())
		require.Equal(t, health.StatusHealthy, resp.Checks["storage"].Status)
		require.Equal(t, "connection refused", resp.Checks["api"].Error)

		err := resp.Err()
		require.ErrorIs(t, err, health.ErrCheckFailed)
		require.Contains(t, err.Error(), "api: connection refused")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		resp := health.Run(ctx, health.Checks{"slow": slow}, health.WithTimeout(20*time.Millisecond))
		require.False(t, resp.Healthy())
		require.Contains(t, resp.Checks["slow"].Error, health.ErrCheckTimeout.Error())
	})
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	get := func(h http.Handler) (int, health.Response) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp health.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return rec.Code, resp
	}

	t.Run("failing check", func(t *testing.T) {
		t.Parallel()

		code, resp := get(health.NewReadiness(health.Checks{"catalog": failing, "tokens": ok}, 0))
		require.Equal(t, http.StatusServiceUnavailable, code)
		require.Equal(t, health.StatusUnhealthy, resp.Status)
		require.Equal(t, "connection refused", resp.Checks["catalog"].Error)
		require.Equal(t, health.StatusHealthy, resp.Checks["tokens"].Status)
	})

	t.Run("result is reused within the window", func(t *testing.T) {
		t.Parallel()

		var runs atomic.Int32
		counting := func(context.Context) error {
			runs.Add(1)
			return nil
		}

		cached := health.NewReadiness(health.Checks{"catalog": counting}, time.Hour)
		for range 3 {
			code, resp := get(cached)
			require.Equal(t, http.StatusOK, code)
			require.Equal(t, health.StatusHealthy, resp.Status)
		}
		require.EqualValues(t, 1, runs.Load())

		uncached := health.NewReadiness(health.Checks{"catalog": counting}, 0)
		get(uncached)
		get(uncached)
		require.EqualValues(t, 3, runs.Load())
	})

	t.Run("drained server skips checks", func(t *testing.T) {
		t.Parallel()

		var runs atomic.Int32
		r := health.NewReadiness(health.Checks{"catalog": func(context.Context) error {
			runs.Add(1)
			return nil
		}}, 0)
		r.Drain()

		code, resp := get(r)
		require.Equal(t, http.StatusServiceUnavailable, code)
		require.Equal(t, health.StatusDraining, resp.Status)
		require.Zero(t, runs.Load())
	})
}

func TestLive(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
