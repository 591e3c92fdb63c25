// Package query assembles parameterized PostgreSQL statements from column
// names that were already validated against a live schema.
//
// Every identifier is quoted with pgx.Identifier and every value travels as a
// $n placeholder argument. The builders never execute anything; they turn
// validated inputs into a (sql, args) pair.
package query

import (
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/joacominatel/auditcoe/internal/schema"
)

// Precondition failures. Callers are expected to rule these out upstream.
var (
	ErrEmptySelection = errors.New("query: empty select list")
	ErrEmptyInsert    = errors.New("query: insert plan has no columns")
	ErrEmptyUpdate    = errors.New("query: update has no assignments")
	ErrUnboundedWrite = errors.New("query: update without a filter")
)

// Now is the SQL now() function, for use as an assignment value.
var Now sq.Sqlizer = sq.Expr("now()")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Table identifies a relation, optionally aliased.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

// TableOf returns the Table a schema snapshot describes.
func TableOf(ts schema.TableSchema, alias string) Table {
	return Table{Schema: ts.Schema, Name: ts.Table, Alias: alias}
}

func (t Table) ident() string {
	if t.Schema == "" {
		return sanitize(t.Name)
	}
	return sanitize(t.Schema, t.Name)
}

func (t Table) from() string {
	if t.Alias == "" {
		return t.ident()
	}
	return t.ident() + " AS " + sanitize(t.Alias)
}

// column renders name qualified by the table alias when there is one.
func (t Table) column(name string) string {
	return qualify(t.Alias, name)
}

func qualify(qualifier, name string) string {
	if qualifier == "" {
		return sanitize(name)
	}
	return sanitize(qualifier, name)
}

// sanitize quotes an identifier. A literal ? is doubled so the placeholder
// rewrite turns it back into a single ? instead of a $n.
func sanitize(parts ...string) string {
	return strings.ReplaceAll(pgx.Identifier(parts).Sanitize(), "?", "??")
}

func quoteAll(qualifier string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = qualify(qualifier, n)
	}
	return out
}
