package sqldb

import "context"

// Handle submits SQL text. Statements carry their values as rendered literals
// (see Literal); there is no parameter binding.
type Handle interface {
	// ExecuteQueryString runs any statement and returns every fetched row in fetch order.
	// A statement that produces no result set returns an empty slice.
	ExecuteQueryString(ctx context.Context, query string) ([]RowMap, error)

	QueryRows(ctx context.Context, query string) (Rows, error) // Eager. Fail upfront on statement execution
	QueryRow(ctx context.Context, query string) Row            // Lazy. only fails at Scan()

	// Exec executes SQL statement like INSERT, UPDATE, DELETE, MERGE.
	Exec(ctx context.Context, query string) (Result, error)
}
