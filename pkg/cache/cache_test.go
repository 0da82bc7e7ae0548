package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/cache"
)

type clock struct {
	now time.Time
	mu  sync.Mutex
}

func newClock() *clock { return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		_, err := c.Get(ctx, "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("expiry", func(t *testing.T) {
		t.Parallel()

		clk := newClock()
		c := cache.NewMemory[int](cache.WithClock(clk.Now), cache.WithCleanupInterval(0), cache.WithDefaultTTL(time.Minute))
		defer c.Close()

		require.NoError(t, c.Set(ctx, "default", 1, 0))
		require.NoError(t, c.Set(ctx, "short", 2, time.Second))
		require.NoError(t, c.Set(ctx, "forever", 3, -1))

		clk.Advance(2 * time.Second)
		_, err := c.Get(ctx, "short")
		require.ErrorIs(t, err, cache.ErrNotFound)
		v, err := c.Get(ctx, "default")
		require.NoError(t, err)
		require.Equal(t, 1, v)

		clk.Advance(time.Hour)
		_, err = c.Get(ctx, "default")
		require.ErrorIs(t, err, cache.ErrNotFound)
		v, err = c.Get(ctx, "forever")
		require.NoError(t, err)
		require.Equal(t, 3, v)
		require.Equal(t, 1, c.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](cache.WithMaxEntries(2))
		defer c.Close()

		require.NoError(t, c.Set(ctx, "a", 1, 0))
		require.NoError(t, c.Set(ctx, "b", 2, 0))
		_, err := c.Get(ctx, "a")
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, "c", 3, 0))

		_, err = c.Get(ctx, "b")
		require.ErrorIs(t, err, cache.ErrNotFound)
		_, err = c.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, 2, c.Len())
	})

	t.Run("overwrite and delete", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v1", 0))
		require.NoError(t, c.Set(ctx, "k", "v2", 0))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v2", v)

		require.NoError(t, c.Delete(ctx, "k"))
		require.NoError(t, c.Delete(ctx, "k"))
		_, err = c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("janitor sweeps expired entries", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](cache.WithCleanupInterval(5 * time.Millisecond))
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", 1, time.Millisecond))
		require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		require.ErrorIs(t, c.Set(ctx, "k", 1, 0), cache.ErrClosed)
	})
}

func TestLoader(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("caches results", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[[]string]()
		defer c.Close()
		l := cache.NewLoader[[]string](c, time.Minute)

		var calls atomic.Int32
		fn := func(context.Context) ([]string, error) {
			calls.Add(1)
			return []string{"mug"}, nil
		}

		for range 3 {
			v, err := l.Load(ctx, "products", fn)
			require.NoError(t, err)
			require.Equal(t, []string{"mug"}, v)
		}
		require.EqualValues(t, 1, calls.Load())

		require.NoError(t, l.Invalidate(ctx, "products"))
		_, err := l.Load(ctx, "products", fn)
		require.NoError(t, err)
		require.EqualValues(t, 2, calls.Load())
	})

	t.Run("failures are not cached", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()
		l := cache.NewLoader[int](c, time.Minute)

		boom := errors.New("boom")
		_, err := l.Load(ctx, "k", func(context.Context) (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)

		v, err := l.Load(ctx, "k", func(context.Context) (int, error) { return 7, nil })
		require.NoError(t, err)
		require.Equal(t, 7, v)
	})

	t.Run("concurrent misses share one load", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()
		l := cache.NewLoader[int](c, time.Minute)

		var calls atomic.Int32
		release := make(chan struct{})
		fn := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 1, nil
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Go(func() {
				v, err := l.Load(ctx, "k", fn)
				require.NoError(t, err)
				require.Equal(t, 1, v)
			})
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		require.LessOrEqual(t, calls.Load(), int32(2))
	})
}
