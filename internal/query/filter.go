package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/joacominatel/auditcoe/internal/schema"
)

// Op is a comparison operator usable in a filter.
type Op int

const (
	OpEq Op = iota
	OpNotEq
	OpGte
	OpLte
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNotEq:
		return "<>"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Filter is one predicate. Table is the alias that qualifies Column, empty
// for an unqualified reference.
type Filter struct {
	Table  string
	Column string
	Op     Op
	Value  any
}

// Filters is an AND-combined predicate list.
type Filters []Filter

// AddIfPresent appends a filter only when ts has the column. It reports
// whether the filter was kept; an absent column is not an error.
func (f *Filters) AddIfPresent(ts schema.TableSchema, qualifier, column string, op Op, value any) bool {
	if !ts.Has(column) {
		return false
	}
	*f = append(*f, Filter{Table: qualifier, Column: column, Op: op, Value: value})
	return true
}

// sqlizer renders the filter through squirrel so the value is bound.
func (f Filter) sqlizer() (sq.Sqlizer, error) {
	col := qualify(f.Table, f.Column)
	switch f.Op {
	case OpEq:
		return sq.Eq{col: f.Value}, nil
	case OpNotEq:
		return sq.NotEq{col: f.Value}, nil
	case OpGte:
		return sq.GtOrEq{col: f.Value}, nil
	case OpLte:
		return sq.LtOrEq{col: f.Value}, nil
	default:
		return nil, fmt.Errorf("query: unsupported operator %s", f.Op)
	}
}
