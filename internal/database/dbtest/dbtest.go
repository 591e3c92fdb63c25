// Package dbtest provides an in-memory database.Driver for tests.
package dbtest

import (
	"context"
	"strings"
	"sync"

	"github.com/joacominatel/auditcoe/internal/database"
)

// Statement is one recorded query.
type Statement struct {
	SQL  string
	Args []any
}

// Session answers catalog lookups from Tables and records every statement.
// QueryRow answers INSERT statements with Inserted/InsertErr and anything
// else with Parent/ParentErr.
type Session struct {
	Tables     map[string][]database.Column
	ColumnsErr error

	Rows     []database.Row
	QueryErr error

	Parent    database.Row
	ParentErr error

	Inserted  database.Row
	InsertErr error

	ExecErr error

	mu         sync.Mutex
	Statements []Statement
	Released   int
}

// GetColumns returns the configured columns of table, or ColumnsErr.
func (s *Session) GetColumns(_ context.Context, _, table string) ([]database.Column, error) {
	if s.ColumnsErr != nil {
		return nil, s.ColumnsErr
	}
	return s.Tables[table], nil
}

// QueryRows records the statement and returns Rows and QueryErr.
// QueryRow records the statement. INSERTs return Inserted and InsertErr,
// anything else Parent and ParentErr.
func (s *Session) QueryRows(_ context.Context, sql string, args ...any) ([]database.Row, error) {
	s.record(sql, args)
	return s.Rows, s.QueryErr
}

func (s *Session) QueryRow(_ context.Context, sql string, args ...any) (database.Row, error) {
	s.record(sql, args)
	if strings.HasPrefix(sql, "INSERT") {
		return s.Inserted, s.InsertErr
	}
	return s.Parent, s.ParentErr
}

// Exec records the statement and reports one affected row unless ExecErr is set.
func (s *Session) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	s.record(sql, args)
	if s.ExecErr != nil {
		return 0, s.ExecErr
	}
	return 1, nil
}

// Release counts the release.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Released++
}

// Find returns the recorded statements starting with prefix.
func (s *Session) Find(prefix string) []Statement {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Statement
	for _, st := range s.Statements {
		if strings.HasPrefix(st.SQL, prefix) {
			out = append(out, st)
		}
	}
	return out
}

func (s *Session) record(sql string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statements = append(s.Statements, Statement{SQL: sql, Args: args})
}

// Driver hands out its single Session on every Acquire.
type Driver struct {
	Session    *Session
	AcquireErr error
	Acquired   int
}

// New returns a Driver whose session serves tables.
func New(tables map[string][]database.Column) *Driver {
	return &Driver{Session: &Session{Tables: tables}}
}

// Connect is a no-op.
func (d *Driver) Connect(context.Context, string) error { return nil }

// Close is a no-op.
func (d *Driver) Close() error { return nil }

// Ping always succeeds.
func (d *Driver) Ping(context.Context) error { return nil }

// DatabaseName reports "audit".
func (d *Driver) DatabaseName() string { return "audit" }

// Acquire returns the shared Session, or AcquireErr.
func (d *Driver) Acquire(context.Context) (database.Session, error) {
	if d.AcquireErr != nil {
		return nil, d.AcquireErr
	}
	d.Acquired++
	return d.Session, nil
}

// Text returns nullable text columns in ordinal order.
func Text(names ...string) []database.Column {
	out := make([]database.Column, len(names))
	for i, n := range names {
		out[i] = database.Column{Name: n, DataType: "text", UDTName: "text", IsNullable: true, OrdinalPos: i + 1}
	}
	return out
}

// Required returns a NOT NULL column without a default.
func Required(name, dataType string) database.Column {
	return database.Column{Name: name, DataType: dataType, UDTName: dataType}
}

// Defaulted returns a NOT NULL column with a default.
func Defaulted(name, dataType string) database.Column {
	return database.Column{Name: name, DataType: dataType, UDTName: dataType, HasDefault: true}
}

// Enum returns a user-defined (enum) column with a default.
func Enum(name, typeName string) database.Column {
	return database.Column{Name: name, DataType: "USER-DEFINED", UDTName: typeName, HasDefault: true}
}
