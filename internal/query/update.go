package query

// Assignment sets Column to Value. Value may be Now.
type Assignment struct {
	Column string
	Value  any
}

// BuildUpdate renders UPDATE <table> SET ... WHERE .... At least one
// assignment and one filter are required.
func BuildUpdate(table Table, set []Assignment, where Filters) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, ErrEmptyUpdate
	}
	if len(where) == 0 {
		return "", nil, ErrUnboundedWrite
	}

	b := psql.Update(table.ident())
	for _, a := range set {
		b = b.Set(qualify("", a.Column), a.Value)
	}
	for _, f := range where {
		f.Table = ""
		pred, err := f.sqlizer()
		if err != nil {
			return "", nil, err
		}
		b = b.Where(pred)
	}

	return b.ToSql()
}
