// Package stdsql adapts a database/sql pool to sqldb.Handle. The mysql,
// mssql and sqlite clients embed its Handle.
package stdsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

type Handle struct {
	*sql.DB // [Embedded]
}

// Ensure stdsql.Handle implements sqldb.Handle interface
var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) ExecuteQueryString(ctx context.Context, query string) ([]sqldb.RowMap, error) {
	if h.DB == nil {
		return nil, fmt.Errorf("stdsql: handle is not open")
	}
	rows, err := h.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	_, items, err := Materialize(rows)
	return items, err
}

func (h *Handle) Exec(ctx context.Context, query string) (sqldb.Result, error) {
	if h.DB == nil {
		return nil, fmt.Errorf("stdsql: handle is not open")
	}
	result, err := h.DB.ExecContext(ctx, query)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &Result{result: result}, nil
}

func (h *Handle) QueryRows(ctx context.Context, query string) (sqldb.Rows, error) {
	if h.DB == nil {
		return nil, fmt.Errorf("stdsql: handle is not open")
	}
	rows, err := h.DB.QueryContext(ctx, query)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	r, err := NewRows(rows)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (h *Handle) QueryRow(ctx context.Context, query string) sqldb.Row {
	return sqldb.NewRow(h.QueryRows(ctx, query))
}

// Pool tunes a *sql.DB.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var DefaultPool = Pool{MaxOpenConns: 10, MaxIdleConns: 10, ConnMaxLifetime: 3 * time.Minute}

// Open opens driverName with dsn and pings it.
func Open(ctx context.Context, driverName, dsn string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
