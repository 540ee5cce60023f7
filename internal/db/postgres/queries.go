package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fair-bot/internal/db"
)

// Driver — адаптер pgx к интерфейсам пакета db.
type Driver struct {
	pool *pgxpool.Pool
	querier
}

var _ db.Driver = (*Driver)(nil)

// NewDriver оборачивает готовый пул.
func NewDriver(pool *pgxpool.Pool) *Driver {
	return &Driver{pool: pool, querier: querier{conn: pool}}
}

func (d *Driver) Name() string { return "postgres" }

func (d *Driver) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

func (d *Driver) Close() { d.pool.Close() }

// Begin открывает транзакцию READ COMMITTED: инварианты держатся на условных
// UPDATE и уникальных индексах, более строгая изоляция не нужна.
func (d *Driver) Begin(ctx context.Context) (db.Tx, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, describe(err)
	}
	return &txAdapter{tx: tx, querier: querier{conn: tx}}, nil
}

// conn — общее у пула и транзакции.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier struct {
	conn conn
}

func (q querier) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := q.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, describe(err)
	}
	return tag.RowsAffected(), nil
}

func (q querier) QueryRow(ctx context.Context, sql string, args ...any) db.Row {
	return row{r: q.conn.QueryRow(ctx, sql, args...)}
}

func (q querier) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, describe(err)
	}
	return rows, nil
}

type row struct {
	r pgx.Row
}

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNoRows
	}
	return describe(err)
}

type txAdapter struct {
	tx pgx.Tx
	querier
}

func (t *txAdapter) Commit(ctx context.Context) error {
	return describe(t.tx.Commit(ctx))
}

func (t *txAdapter) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return describe(err)
}

// describe дополняет ошибку сервера кодом SQLSTATE и именем ограничения.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.ConstraintName != "" {
			return fmt.Errorf("postgres %s (%s): %w", pgErr.Code, pgErr.ConstraintName, err)
		}
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	return err
}
