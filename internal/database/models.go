package database

// Column represents a table column with the catalog metadata the query
// layer needs.
type Column struct {
	Name       string
	DataType   string
	UDTName    string
	IsNullable bool
	HasDefault bool
	OrdinalPos int
}

// Row is one result row keyed by column name. Values are already converted
// to JSON-friendly Go types by the driver.
type Row map[string]any
