package postgres

import (
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/joacominatel/auditcoe/internal/database"
)

// normalizeRow converts pgx's decoded values into types that encode to
// natural JSON (UUIDs as strings, numerics as numbers).
func normalizeRow(m map[string]any) database.Row {
	row := make(database.Row, len(m))
	for k, v := range m {
		row[k] = normalizeValue(v)
	}
	return row
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		switch {
		case val.NaN:
			return "NaN"
		case val.InfinityModifier == pgtype.Infinity:
			return "Infinity"
		case val.InfinityModifier == pgtype.NegativeInfinity:
			return "-Infinity"
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return val
		}
		if math.IsInf(f.Float64, 0) {
			// too large for float64; Numeric marshals its exact digits
			return val
		}
		return f.Float64
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = normalizeValue(val[i])
		}
		return out
	default:
		return v
	}
}

// finite returns f, or its text form when JSON cannot carry it.
func finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}
