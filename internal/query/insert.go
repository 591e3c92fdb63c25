package query

import "strings"

// InsertPlan is an ordered column to value mapping. Columns keep the order
// of their first Set; setting a column again only replaces its value.
type InsertPlan struct {
	columns []string
	values  map[string]any
}

// NewInsertPlan returns an empty plan.
func NewInsertPlan() *InsertPlan {
	return &InsertPlan{values: make(map[string]any)}
}

// Set binds value to column.
func (p *InsertPlan) Set(column string, value any) {
	if _, ok := p.values[column]; !ok {
		p.columns = append(p.columns, column)
	}
	p.values[column] = value
}

// Columns returns the planned columns in order.
func (p *InsertPlan) Columns() []string {
	return append([]string(nil), p.columns...)
}

// Value returns the value bound to column.
func (p *InsertPlan) Value(column string) (any, bool) {
	v, ok := p.values[column]
	return v, ok
}

// Provided returns the planned columns as a set.
func (p *InsertPlan) Provided() map[string]struct{} {
	out := make(map[string]struct{}, len(p.columns))
	for _, c := range p.columns {
		out[c] = struct{}{}
	}
	return out
}

// Len reports the number of planned columns.
func (p *InsertPlan) Len() int {
	return len(p.columns)
}

// BuildInsert renders
//
//	INSERT INTO <table> (<cols>) VALUES (<placeholders>) RETURNING <cols>
//
// RETURNING is omitted when returning is empty. The table alias is ignored.
func BuildInsert(table Table, plan *InsertPlan, returning []string) (string, []any, error) {
	if plan == nil || plan.Len() == 0 {
		return "", nil, ErrEmptyInsert
	}

	values := make([]any, len(plan.columns))
	for i, c := range plan.columns {
		values[i] = plan.values[c]
	}

	b := psql.Insert(table.ident()).
		Columns(quoteAll("", plan.columns)...).
		Values(values...)

	if len(returning) > 0 {
		b = b.Suffix("RETURNING " + strings.Join(quoteAll("", returning), ", "))
	}

	return b.ToSql()
}
