package schema

// storeGenerated lists columns the database or its triggers populate, so an
// insert may omit them even when they are NOT NULL without a default.
var storeGenerated = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
}

// CheckRequired returns, in ordinal order, the NOT NULL columns without a
// default that provided does not cover. An empty result means the insert
// may proceed.
func CheckRequired(ts TableSchema, provided map[string]struct{}) []string {
	missing := []string{}
	for _, c := range ts.Columns {
		if c.Nullable || c.HasDefault {
			continue
		}
		if _, ok := provided[c.Name]; ok {
			continue
		}
		if _, ok := storeGenerated[c.Name]; ok {
			continue
		}
		missing = append(missing, c.Name)
	}
	return missing
}
