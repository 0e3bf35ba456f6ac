package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// dbAdapter narrows a SQL engine down to the two calls the catalog makes.
// Adapters exist for database/sql, pgxpool and sqlx handles so a deployment
// keeps whichever driver stack it already runs.
type dbAdapter interface {
	// QueryRows executes a finished, interpolated query
	QueryRows(ctx context.Context, query string) (dbRows, error)

	// Exec executes a finished, interpolated statement and reports the
	// number of rows affected
	Exec(ctx context.Context, query string) (int64, error)
}

// dbRows is the subset of a result cursor the catalog iterates.
type dbRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlDBAdapter struct {
	db *sql.DB
}

func (a sqlDBAdapter) QueryRows(ctx context.Context, query string) (dbRows, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a sqlDBAdapter) Exec(ctx context.Context, query string) (int64, error) {
	result, err := a.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

type pgxPoolAdapter struct {
	pool *pgxpool.Pool
}

func (a pgxPoolAdapter) QueryRows(ctx context.Context, query string) (dbRows, error) {
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgxRowsAdapter{rows: rows}, nil
}

func (a pgxPoolAdapter) Exec(ctx context.Context, query string) (int64, error) {
	tag, err := a.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// pgxRowsAdapter papers over pgx.Rows closing without an error return.
type pgxRowsAdapter struct {
	rows pgx.Rows
}

func (r pgxRowsAdapter) Next() bool             { return r.rows.Next() }
func (r pgxRowsAdapter) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r pgxRowsAdapter) Err() error             { return r.rows.Err() }
func (r pgxRowsAdapter) Close() error           { r.rows.Close(); return nil }

type sqlxDBAdapter struct {
	db *sqlx.DB
}

func (a sqlxDBAdapter) QueryRows(ctx context.Context, query string) (dbRows, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a sqlxDBAdapter) Exec(ctx context.Context, query string) (int64, error) {
	result, err := a.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
