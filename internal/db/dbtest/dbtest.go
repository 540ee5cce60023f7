// Package dbtest поднимает хранилище для тестов: SQLite во временном
// каталоге или PostgreSQL из FAIR_TEST_PG_DSN.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/db"
	"fair-bot/internal/db/postgres"
	"fair-bot/internal/db/sqlite"
)

// PostgresDSNEnv — переменная с DSN тестовой базы PostgreSQL.
const PostgresDSNEnv = "FAIR_TEST_PG_DSN"

// SQLite открывает чистую базу в t.TempDir() и применяет миграции.
func SQLite(t testing.TB) db.Driver {
	t.Helper()
	ctx := context.Background()

	drv, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "fair.db"))
	require.NoError(t, err)
	t.Cleanup(drv.Close)

	require.NoError(t, sqlite.Migrate(ctx, drv))
	return drv
}

// Postgres подключается к FAIR_TEST_PG_DSN, очищает таблицы и применяет
// миграции. Без переменной тест пропускается.
func Postgres(t testing.TB) db.Driver {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s не задан", PostgresDSNEnv)
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	drv := postgres.NewDriver(pool)
	t.Cleanup(drv.Close)

	_, err = drv.Exec(ctx, `
		DROP TABLE IF EXISTS
			dialog_states, adjustments_history, purchases_history, rewards_history,
			transfers_history, managers_blacklist, finished_locations, queue_entries,
			shops, managers, locations, players, users, schema_migrations
		CASCADE
	`)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, drv))
	return drv
}

// Store — ledger-хранилище на SQLite.
func Store(t testing.TB) *db.Store {
	t.Helper()
	return db.NewStore(SQLite(t))
}
