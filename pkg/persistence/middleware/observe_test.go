package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/manifold/pkg/adapters/memory"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/observability"
	"github.com/aretw0/manifold/pkg/persistence/middleware"
	"github.com/aretw0/manifold/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Contract(t *testing.T) {
	metrics, err := observability.NewMetrics(nil)
	require.NoError(t, err)

	store := middleware.Chain(memory.NewStore(),
		middleware.NewLoggingMiddleware(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		middleware.NewMetricsMiddleware(metrics),
		middleware.NewPIIMiddleware([]string{"password"}),
	)
	ports.RunEntityStoreContract(t, store)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := middleware.NewLoggingMiddleware(logger)(memory.NewStore())
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "entity_id=missing")
	assert.NotContains(t, buf.String(), "level=ERROR", "not-found is an expected outcome")

	buf.Reset()
	_, err = store.Save(ctx, &domain.Entity{ID: "e1"}, "stale")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	store := middleware.NewMetricsMiddleware(metrics)(memory.NewStore())
	ctx := context.Background()

	_, err = store.Save(ctx, &domain.Entity{ID: "e1"}, "")
	require.NoError(t, err)
	_, _ = store.Load(ctx, "missing")

	count, err := testutil.GatherAndCount(reg, "manifold_entity_store_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per (op, result)")
}
