package postgres

import (
	"context"
	"database/sql"
)

// Querier is the subset of database/sql used by the trip, rider and
// driver repositories. It is satisfied by both *sql.DB and *sql.Tx, so
// each repository can run standalone or inside a caller's transaction
// via its WithTx constructor.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
