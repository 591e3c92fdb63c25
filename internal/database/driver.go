package database

import "context"

// Driver defines the interface for database operations.
// All implementations must be safe for concurrent use.
type Driver interface {
	// Connect establishes a connection pool to the database.
	Connect(ctx context.Context, dsn string) error

	// Close closes the connection pool.
	Close() error

	// Ping checks if the connection is alive.
	Ping(ctx context.Context) error

	// Acquire checks out one connection for the lifetime of a request.
	// The caller must Release it on every exit path.
	Acquire(ctx context.Context) (Session, error)

	// DatabaseName returns the name of the connected database.
	DatabaseName() string
}

// Session is a single connection scoped to one request. Statements run in
// autocommit mode.
type Session interface {
	// GetColumns returns all columns for a table in ordinal order. A table
	// that does not exist yields no columns and no error.
	GetColumns(ctx context.Context, schema, table string) ([]Column, error)

	// QueryRows runs a statement and collects every row.
	QueryRows(ctx context.Context, sql string, args ...any) ([]Row, error)

	// QueryRow runs a statement and returns its first row, or nil when the
	// statement produced no rows.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Release returns the connection to the pool. Safe to call twice.
	Release()
}
