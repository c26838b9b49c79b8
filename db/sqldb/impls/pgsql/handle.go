package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

type Handle struct {
	*pgxpool.Pool // [Embedded]
}

// Ensure pgsql.Handle implements sqldb.Handle interface
var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) ExecuteQueryString(ctx context.Context, query string) ([]sqldb.RowMap, error) {
	rows, err := h.QueryRows(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []sqldb.RowMap{}
	for rows.Next() {
		m := rows.Map()
		if m == nil {
			return nil, fmt.Errorf("scan failed: %w", rows.Err())
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during iterating rows: %w", err)
	}
	return items, nil
}

func (h *Handle) Exec(ctx context.Context, query string) (sqldb.Result, error) {
	if h.Pool == nil {
		return nil, fmt.Errorf("pgsql: handle is not open")
	}
	tag, err := h.Pool.Exec(ctx, query)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &Result{tag: tag}, nil
}

func (h *Handle) QueryRows(ctx context.Context, query string) (sqldb.Rows, error) {
	if h.Pool == nil {
		return nil, fmt.Errorf("pgsql: handle is not open")
	}
	rows, err := h.Pool.Query(ctx, query)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &Rows{current: rows}, nil
}

func (h *Handle) QueryRow(ctx context.Context, query string) sqldb.Row {
	if h.Pool == nil {
		return sqldb.NewRow(nil, fmt.Errorf("pgsql: handle is not open"))
	}
	return &Row{row: h.Pool.QueryRow(ctx, query)}
}
