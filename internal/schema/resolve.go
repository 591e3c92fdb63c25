package schema

// Intersect returns the desired fields that exist in ts, in desired order.
// Fields the table lacks are dropped without error. The result is empty,
// never nil, when nothing matches.
func Intersect(desired []string, ts TableSchema) []string {
	present := make(map[string]struct{}, len(ts.Columns))
	for _, c := range ts.Columns {
		present[c.Name] = struct{}{}
	}

	out := make([]string, 0, len(desired))
	for _, f := range desired {
		if _, ok := present[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ResolveAlias returns the first candidate that names a column of ts.
func ResolveAlias(candidates []string, ts TableSchema) (string, bool) {
	for _, c := range candidates {
		if ts.Has(c) {
			return c, true
		}
	}
	return "", false
}
