// Package db — SQL-хранилище ledger и состояний диалога.
// Запросы пишутся один раз в диалекте PostgreSQL ($1, $2, ...);
// драйверы (postgres, sqlite) приводят их к своему синтаксису.
package db

import (
	"context"
	"errors"
)

// ErrNoRows — запрос не вернул строк. Драйверы приводят к нему свои ошибки.
var ErrNoRows = errors.New("no rows in result set")

// Row — результат QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// Rows — результат Query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier выполняет запросы либо на пуле, либо внутри транзакции.
type Querier interface {
	// Exec возвращает число затронутых строк.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Tx — транзакция. Rollback после Commit безопасен.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Driver — подключение к конкретной СУБД.
type Driver interface {
	Querier
	// Begin открывает транзакцию уровня не ниже READ COMMITTED.
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close()
	// Name — "postgres" или "sqlite", для логов и метрик.
	Name() string
}
