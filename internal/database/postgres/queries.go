package postgres

// SQL queries for PostgreSQL metadata introspection.
const (
	// Identity and generated columns are reported as having a default since
	// the store fills them itself.
	queryGetColumns = `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			(c.column_default IS NOT NULL
				OR c.is_identity = 'YES'
				OR COALESCE(c.is_generated, 'NEVER') <> 'NEVER') AS has_default,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		  AND c.table_name = $2
		ORDER BY c.ordinal_position`
)
