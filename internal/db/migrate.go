package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Migration — одна версия схемы.
type Migration struct {
	Version int
	SQL     string
}

// Migrate применяет миграции по возрастанию версии.
// Каждая миграция выполняется в своей транзакции вместе с записью в
// schema_migrations, поэтому повторный запуск безопасен.
func Migrate(ctx context.Context, drv Driver, migrations []Migration) error {
	if _, err := drv.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	for _, m := range migrations {
		applied, err := execMigration(ctx, drv, m)
		if err != nil {
			return err
		}
		if applied {
			log.WithFields(log.Fields{
				"version": m.Version,
				"driver":  drv.Name(),
			}).Info("Миграция применена")
		}
	}
	return nil
}

func execMigration(ctx context.Context, drv Driver, m Migration) (bool, error) {
	tx, err := drv.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", m.Version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
