package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func responsesTable() TableSchema {
	return TableSchema{
		Schema: "public",
		Table:  "task_responses",
		Columns: []ColumnMeta{
			{Name: "id", DataType: "uuid"},
			{Name: "task_id", DataType: "uuid"},
			{Name: "response_text", DataType: "text", Nullable: true},
			{Name: "severity", DataType: "text"},
			{Name: "status", DataType: "text", HasDefault: true},
			{Name: "created_at", DataType: "timestamp with time zone"},
			{Name: "updated_at", DataType: "timestamp with time zone"},
			{Name: "reviewer", DataType: "text"},
		},
	}
}

func TestCheckRequired(t *testing.T) {
	ts := responsesTable()

	t.Run("reports unprovided severity", func(t *testing.T) {
		assert.Equal(t, []string{"severity"}, CheckRequired(ts, set("task_id", "response_text", "reviewer")))
	})

	t.Run("lists every gap in ordinal order", func(t *testing.T) {
		assert.Equal(t, []string{"task_id", "severity", "reviewer"}, CheckRequired(ts, set()))
	})

	t.Run("allow-list and defaults are exempt", func(t *testing.T) {
		got := CheckRequired(ts, set("task_id", "severity", "reviewer"))
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("nil provided set", func(t *testing.T) {
		assert.Equal(t, []string{"task_id", "severity", "reviewer"}, CheckRequired(ts, nil))
	})

	t.Run("empty table", func(t *testing.T) {
		assert.Empty(t, CheckRequired(TableSchema{}, set("x")))
	})

	t.Run("idempotent", func(t *testing.T) {
		p := set("task_id")
		assert.Equal(t, CheckRequired(ts, p), CheckRequired(ts, p))
	})
}
