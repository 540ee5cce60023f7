package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/ledger"
)

// Store — реализация ledger.Store: чтения идут через пул,
// изменения через WithTx.
type Store struct {
	*repository
	drv Driver
}

var _ ledger.Store = (*Store)(nil)

// NewStore создаёт хранилище поверх драйвера.
func NewStore(drv Driver) *Store {
	return &Store{repository: &repository{q: drv}, drv: drv}
}

// WithTx выполняет fn в одной транзакции. Ошибка fn (в том числе отказ
// бизнес-логики) откатывает всё, иначе транзакция фиксируется.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Repository) error) error {
	tx, err := s.drv.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	defer func() {
		// Rollback после Commit ничего не делает
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			log.WithError(rbErr).Debug("Rollback")
		}
	}()

	if err := fn(&repository{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Ping проверяет соединение.
func (s *Store) Ping(ctx context.Context) error {
	return s.drv.Ping(ctx)
}

// Driver — драйвер под хранилищем.
func (s *Store) Driver() Driver {
	return s.drv
}
