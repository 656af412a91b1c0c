//go:build integration

package kvstore_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/ledger"
)

// setupTestDatabase starts a postgres container and applies the migrations
func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("loginguard"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(ctx, poolConfig, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	// migrations are idempotent
	require.NoError(t, db.Migrate(ctx))

	return db
}

func TestPostgresStore(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()
	store := kvstore.NewPostgresStore(db.Pool)

	t.Run("set get delete", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Set(ctx, "k", "v1", time.Hour))
		require.NoError(t, store.Set(ctx, "k", "v2", time.Hour))

		v, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2", v)

		require.NoError(t, store.Delete(ctx, "k"))
		_, ok, err = store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired rows are invisible and swept", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", "v", time.Millisecond))
		require.NoError(t, store.Set(ctx, "forever", "v", 0))
		time.Sleep(20 * time.Millisecond)

		_, ok, err := store.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, ok, err = store.Get(ctx, "forever")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ledger over scoped postgres store", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		deviceA := ledger.New(kvstore.NewScoped(store, "device_a:"), ledger.Config{}, logger)
		deviceB := ledger.New(kvstore.NewScoped(store, "device_b:"), ledger.Config{}, logger)

		for i := 0; i < ledger.DefaultThreshold; i++ {
			_, err := deviceA.RecordOutcome(ctx, "a@x.com", false)
			require.NoError(t, err)
		}

		assert.True(t, deviceA.CheckLockout(ctx, "a@x.com").Locked)
		assert.False(t, deviceB.CheckLockout(ctx, "a@x.com").Locked)
	})
}
