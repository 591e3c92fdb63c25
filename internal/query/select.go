package query

import (
	"fmt"

	"github.com/joacominatel/auditcoe/internal/schema"
)

// MaxLimit is the largest row limit BuildSelect will emit.
const MaxLimit = 1000

// Join is an inner equality join: Table.Column = base.BaseColumn.
type Join struct {
	Table      Table
	Column     string
	BaseColumn string
}

// SelectSpec describes a listing query. Columns, OrderBy and every filter
// column must already be known to exist.
type SelectSpec struct {
	Table   Table
	Columns []string
	Join    *Join
	Filters Filters
	// OrderBy falls back to the first selected column when empty.
	OrderBy string
	Limit   int
}

// BuildSelect renders
//
//	SELECT <cols> FROM <table> [JOIN ...] [WHERE ...] ORDER BY <col> DESC LIMIT <n>
//
// WHERE is emitted only when there is at least one filter.
func BuildSelect(spec SelectSpec) (string, []any, error) {
	if len(spec.Columns) == 0 {
		return "", nil, ErrEmptySelection
	}

	b := psql.Select(quoteAll(spec.Table.Alias, spec.Columns)...).From(spec.Table.from())

	if j := spec.Join; j != nil {
		b = b.Join(fmt.Sprintf("%s ON %s = %s",
			j.Table.from(), j.Table.column(j.Column), spec.Table.column(j.BaseColumn)))
	}

	for _, f := range spec.Filters {
		pred, err := f.sqlizer()
		if err != nil {
			return "", nil, err
		}
		b = b.Where(pred)
	}

	order := spec.OrderBy
	if order == "" {
		order = spec.Columns[0]
	}
	b = b.OrderBy(spec.Table.column(order) + " DESC")

	limit := spec.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	b = b.Limit(uint64(limit))

	return b.ToSql()
}

// OrderColumn picks preferred when ts has it, otherwise the first selected
// column.
func OrderColumn(preferred string, ts schema.TableSchema, selection []string) string {
	if ts.Has(preferred) {
		return preferred
	}
	if len(selection) > 0 {
		return selection[0]
	}
	return ""
}

// LimitBounds is the accepted row limit range for one listing.
type LimitBounds struct {
	Default int
	Max     int
}

// Listing limits.
var (
	RunLimit  = LimitBounds{Default: 50, Max: 500}
	TaskLimit = LimitBounds{Default: 200, Max: 1000}
)

// Resolve returns the default for a zero request and rejects values outside
// 1..Max.
func (b LimitBounds) Resolve(n int) (int, error) {
	if n == 0 {
		return b.Default, nil
	}
	if n < 1 || n > b.Max {
		return 0, fmt.Errorf("limit must be between 1 and %d", b.Max)
	}
	return n, nil
}
