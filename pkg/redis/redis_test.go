package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty URL returns ErrEmptyConnectionURL", func(t *testing.T) {
		t.Parallel()

		client, err := Connect(ctx, Config{})
		require.ErrorIs(t, err, ErrEmptyConnectionURL)
		require.Nil(t, client)
	})

	t.Run("invalid scheme returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{
			"http://localhost:6379",
			"localhost:6379",
			"postgresql://localhost:6379",
		} {
			client, err := Connect(ctx, Config{URL: url})
			require.ErrorIs(t, err, ErrFailedToParseURL, url)
			require.Nil(t, client)
		}
	})

	t.Run("malformed URL returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()

		client, err := Connect(ctx, Config{URL: "redis://localhost:6379/notanumber"})
		require.ErrorIs(t, err, ErrFailedToParseURL)
		require.Nil(t, client)
	})

	t.Run("unreachable server returns ErrConnectionFailed", func(t *testing.T) {
		t.Parallel()

		client, err := Connect(ctx, Config{
			URL:           "redis://127.0.0.1:1/0",
			RetryAttempts: 2,
			RetryInterval: time.Millisecond,
			DialTimeout:   50 * time.Millisecond,
		})
		require.ErrorIs(t, err, ErrConnectionFailed)
		require.Nil(t, client)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		t.Parallel()

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Connect(cctx, Config{
			URL:           "redis://127.0.0.1:1/0",
			RetryAttempts: 5,
			RetryInterval: time.Hour,
		})
		require.ErrorIs(t, err, ErrConnectionFailed)
	})
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, ErrHealthcheckFailed)
}
