// Package schema reads live table definitions from the catalog and answers
// questions about them: which desired fields exist, which alias a table
// uses for a logical column, and which required columns an insert would
// leave empty.
//
// Nothing here is cached. A TableSchema is a snapshot taken for one request
// and discarded with it.
package schema

import (
	"context"
	"fmt"

	"github.com/joacominatel/auditcoe/internal/database"
)

// DefaultSchema is the namespace used when a caller does not name one.
const DefaultSchema = "public"

// Catalog data_type value PostgreSQL reports for enums and other
// user-defined types.
const dataTypeUserDefined = "USER-DEFINED"

// ColumnMeta describes one physical column.
type ColumnMeta struct {
	Name             string `json:"name"`
	Nullable         bool   `json:"nullable"`
	HasDefault       bool   `json:"has_default"`
	DataType         string `json:"data_type"`
	DeclaredTypeName string `json:"declared_type_name"`
}

// IsEnumerated reports whether the column holds a categorical type (an enum
// or another user-defined type) rather than free text.
func (c ColumnMeta) IsEnumerated() bool {
	return c.DataType == dataTypeUserDefined
}

// TableSchema is the ordered column list of one table.
type TableSchema struct {
	Schema  string
	Table   string
	Columns []ColumnMeta
}

// ColumnSource is the catalog access Inspect needs.
// database.Session satisfies it.
type ColumnSource interface {
	GetColumns(ctx context.Context, schema, table string) ([]database.Column, error)
}

// Inspect loads the live column set of schemaName.tableName. A table that
// does not exist produces an empty TableSchema and no error.
func Inspect(ctx context.Context, src ColumnSource, schemaName, tableName string) (TableSchema, error) {
	if schemaName == "" {
		schemaName = DefaultSchema
	}

	cols, err := src.GetColumns(ctx, schemaName, tableName)
	if err != nil {
		return TableSchema{}, fmt.Errorf("inspect %s.%s: %w", schemaName, tableName, err)
	}
	return FromColumns(schemaName, tableName, cols), nil
}

// FromColumns converts catalog rows into a TableSchema. Duplicate names keep
// their first occurrence.
func FromColumns(schemaName, tableName string, cols []database.Column) TableSchema {
	ts := TableSchema{Schema: schemaName, Table: tableName}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		ts.Columns = append(ts.Columns, ColumnMeta{
			Name:             c.Name,
			Nullable:         c.IsNullable,
			HasDefault:       c.HasDefault,
			DataType:         c.DataType,
			DeclaredTypeName: c.UDTName,
		})
	}
	return ts
}

// IsEmpty reports whether the table is absent or has no columns.
func (ts TableSchema) IsEmpty() bool {
	return len(ts.Columns) == 0
}

// Names returns the column names in ordinal order. Never nil.
func (ts TableSchema) Names() []string {
	names := make([]string, len(ts.Columns))
	for i, c := range ts.Columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column called name.
func (ts TableSchema) Has(name string) bool {
	_, ok := ts.Column(name)
	return ok
}

// Column looks up a column by name.
func (ts TableSchema) Column(name string) (ColumnMeta, bool) {
	for _, c := range ts.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMeta{}, false
}
