package persistence

import (
	"context"
	"database/sql"
)

// Executor abstracts over *database.Connection and *sql.Tx so repository
// methods can run inside or outside a transaction. Services pass the
// transaction handle when they need atomicity (e.g. lead conversion,
// quote acceptance) and the shared connection otherwise.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
