package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/auditcoe/internal/database"
)

// Pool sizing used when the caller does not override it.
const (
	DefaultMaxConns = 5
	DefaultMinConns = 1
)

// Driver implements the database.Driver interface for PostgreSQL.
type Driver struct {
	pool     *pgxpool.Pool
	dbName   string
	maxConns int32
	minConns int32
}

// Option configures a Driver.
type Option func(*Driver)

// WithPoolSize overrides the pool bounds. Non-positive values keep the
// defaults.
func WithPoolSize(maxConns, minConns int) Option {
	return func(d *Driver) {
		if maxConns > 0 {
			d.maxConns = int32(maxConns)
		}
		if minConns > 0 {
			d.minConns = int32(minConns)
		}
	}
}

// New creates a new PostgreSQL driver.
func New(opts ...Option) *Driver {
	d := &Driver{maxConns: DefaultMaxConns, minConns: DefaultMinConns}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect establishes a connection pool to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = d.maxConns
	cfg.MinConns = d.minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}

	d.pool = pool
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.pool == nil {
		return fmt.Errorf("not connected")
	}
	return d.pool.Ping(ctx)
}

// Acquire checks out a pooled connection for one request.
func (d *Driver) Acquire(ctx context.Context) (database.Session, error) {
	if d.pool == nil {
		return nil, fmt.Errorf("not connected")
	}
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	return &session{conn: conn}, nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

type session struct {
	conn *pgxpool.Conn
	once sync.Once
}

// GetColumns returns column metadata for a table.
func (s *session) GetColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	rows, err := s.conn.Query(ctx, queryGetColumns, schema, table)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var col database.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &col.UDTName, &nullable, &col.HasDefault, &col.OrdinalPos); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsNullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// QueryRows runs a statement and collects every row as a map.
func (s *session) QueryRows(ctx context.Context, sql string, args ...any) ([]database.Row, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	result := make([]database.Row, len(maps))
	for i, m := range maps {
		result[i] = normalizeRow(m)
	}
	return result, nil
}

// QueryRow runs a statement and returns its first row, or nil.
func (s *session) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read row: %w", err)
	}
	return normalizeRow(m), nil
}

// Exec runs a statement and reports the affected row count.
func (s *session) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := s.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("execute: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Release returns the connection to the pool.
func (s *session) Release() {
	s.once.Do(s.conn.Release)
}
