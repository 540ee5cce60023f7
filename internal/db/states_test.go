package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/db"
	"fair-bot/internal/db/dbtest"
	"fair-bot/internal/dialog"
	"fair-bot/internal/ledger"
)

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := db.NewStateStore(dbtest.SQLite(t))
	key := dialog.Key{SubjectID: 5, ChatID: 6}

	_, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	saved := dialog.Session{
		State:     dialog.ManagerRewardAmount,
		Payload:   dialog.Payload{dialog.KeyCurrentPlayer: "42"},
		UpdatedAt: time.Unix(1_700_000_000, 0),
	}
	require.NoError(t, store.Save(ctx, key, saved))

	got, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.State, got.State)
	assert.Equal(t, saved.Payload, got.Payload)
	assert.Equal(t, saved.UpdatedAt.Unix(), got.UpdatedAt.Unix())

	// Повторное сохранение перезаписывает
	saved.State = dialog.ManagerMainMenu
	saved.Payload = nil
	require.NoError(t, store.Save(ctx, key, saved))
	got, ok, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dialog.ManagerMainMenu, got.State)
	assert.Empty(t, got.Payload)

	require.NoError(t, store.Delete(ctx, key))
	_, ok, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStorePurgeAndSubjectWipe(t *testing.T) {
	ctx := context.Background()
	store := db.NewStateStore(dbtest.SQLite(t))
	old := time.Unix(1_000, 0)
	fresh := time.Unix(2_000_000_000, 0)

	require.NoError(t, store.Save(ctx, dialog.Key{SubjectID: 1, ChatID: 1}, dialog.Session{State: dialog.PlayerMainMenu, UpdatedAt: old}))
	require.NoError(t, store.Save(ctx, dialog.Key{SubjectID: 1, ChatID: 2}, dialog.Session{State: dialog.PlayerMainMenu, UpdatedAt: fresh}))
	require.NoError(t, store.Save(ctx, dialog.Key{SubjectID: 2, ChatID: 2}, dialog.Session{State: dialog.ManagerMainMenu, UpdatedAt: fresh}))

	purged, err := store.PurgeStale(ctx, time.Unix(1_000_000, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, store.DeleteSubject(ctx, 1))
	_, ok, err := store.Load(ctx, dialog.Key{SubjectID: 1, ChatID: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Load(ctx, dialog.Key{SubjectID: 2, ChatID: 2})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	drv := dbtest.SQLite(t)

	// dbtest уже применил миграции, повтор ничего не делает
	require.NoError(t, db.Migrate(ctx, drv, []db.Migration{{Version: 1, SQL: "CREATE TABLE broken ("}}))

	var versions int64
	require.NoError(t, drv.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, int64(3), versions)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := dbtest.Store(t)

	_, ok, err := store.InsertLocation(ctx, "Тир", 100, false)
	require.NoError(t, err)
	require.True(t, ok)

	err = store.WithTx(ctx, func(tx ledger.Repository) error {
		if _, _, err := tx.InsertLocation(ctx, "Карусель", 50, false); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	loc, err := store.LocationByName(ctx, "Карусель")
	require.NoError(t, err)
	assert.Nil(t, loc)

	_, ok, err = store.InsertLocation(ctx, "Тир", 10, true)
	require.NoError(t, err)
	assert.False(t, ok, "имя локации уникально")
}
