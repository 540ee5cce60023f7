// Package sqlite — драйвер хранилища на SQLite (modernc.org/sqlite, без cgo).
// Нужен для локального запуска одним файлом и для тестов.
//
// SQLite допускает одного писателя, поэтому пул ограничен одним соединением:
// транзакции выстраиваются в очередь внутри database/sql, и условные UPDATE
// ведут себя так же, как в PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"fair-bot/internal/db"
)

// Прагмы соединения передаются в DSN, чтобы пережить переоткрытие соединения
const connPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Прагмы файла базы
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + connPragmas
	}
	return path + "?" + connPragmas
}

// Open открывает (или создаёт) файл базы.
func Open(ctx context.Context, path string) (*Driver, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("ошибка %q: %w", p, err)
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.WithField("path", path).Info("SQLite открыт")
	return &Driver{db: sqlDB, querier: querier{conn: sqlDB}}, nil
}

// Driver — адаптер database/sql к интерфейсам пакета db.
type Driver struct {
	db *sql.DB
	querier
}

var _ db.Driver = (*Driver)(nil)

func (d *Driver) Name() string { return "sqlite" }

func (d *Driver) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *Driver) Close() {
	if err := d.db.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия SQLite")
	}
}

func (d *Driver) Begin(ctx context.Context) (db.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx, querier: querier{conn: tx}}, nil
}

// placeholder — "$N" в запросах пишется как "?N" в SQLite.
var placeholder = regexp.MustCompile(`\$(\d+)`)

func rebind(query string) string {
	return placeholder.ReplaceAllString(query, "?$1")
}

// conn — общее у *sql.DB и *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type querier struct {
	conn conn
}

func (q querier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.conn.ExecContext(ctx, rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q querier) QueryRow(ctx context.Context, query string, args ...any) db.Row {
	return row{r: q.conn.QueryRowContext(ctx, rebind(query), args...)}
}

func (q querier) Query(ctx context.Context, query string, args ...any) (db.Rows, error) {
	rs, err := q.conn.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows{rs}, nil
}

type row struct {
	r *sql.Row
}

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNoRows
	}
	return err
}

type rows struct {
	*sql.Rows
}

func (r rows) Close() {
	_ = r.Rows.Close()
}

type txAdapter struct {
	tx *sql.Tx
	querier
}

func (t *txAdapter) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *txAdapter) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
