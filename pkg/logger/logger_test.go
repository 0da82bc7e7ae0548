package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

type ctxKey struct{}

func extractor(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	if !ok || v == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", v), true
}

func TestNew_JSONWithExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "debug"}, &buf, extractor, nil)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	log.With(slog.String("component", "cart")).DebugContext(ctx, "loaded", slog.Int("items", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "loaded", rec["msg"])
	require.Equal(t, "req-1", rec["request_id"])
	require.Equal(t, "cart", rec["component"])
	require.EqualValues(t, 3, rec["items"])
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "warn", Format: "text"}, &buf)

	log.Info("hidden")
	require.Empty(t, buf.String())

	log.Warn("shown")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "verbose"}, &buf)

	log.Debug("hidden")
	require.Empty(t, buf.String())
	log.Info("shown")
	require.NotEmpty(t, buf.String())
}

func TestOrNope(t *testing.T) {
	t.Parallel()

	require.NotNil(t, logger.OrNope(nil))

	l := slog.Default()
	require.Same(t, l, logger.OrNope(l))
}
