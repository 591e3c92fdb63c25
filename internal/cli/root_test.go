package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/joacominatel/auditcoe/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "auditcoe", cmd.Use)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"serve", "columns"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestColumnsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	columns, _, err := cmd.Find([]string{"columns"})
	require.NoError(t, err)

	schemaFlag := columns.Flags().Lookup("schema")
	require.NotNil(t, schemaFlag)
	assert.Equal(t, "public", schemaFlag.DefValue)
	assert.NotNil(t, columns.Flags().Lookup("json"))

	assert.Error(t, columns.Args(columns, nil))
	assert.NoError(t, columns.Args(columns, []string{"tasks"}))
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	listen := serve.Flags().Lookup("listen")
	require.NotNil(t, listen)
	assert.Equal(t, "", listen.DefValue)
}

func sampleTable() schema.TableSchema {
	return schema.TableSchema{
		Schema: "public",
		Table:  "task_responses",
		Columns: []schema.ColumnMeta{
			{Name: "id", DataType: "uuid", HasDefault: true},
			{Name: "task_id", DataType: "uuid"},
			{Name: "kind", DataType: "USER-DEFINED", DeclaredTypeName: "response_kind", Nullable: true},
			{Name: "response_text", DataType: "text", Nullable: true},
		},
	}
}

func TestRenderColumns(t *testing.T) {
	out := renderColumns(sampleTable())

	assert.Contains(t, out, "public.task_responses")
	assert.Contains(t, out, "(4 columns)")
	assert.Regexp(t, `task_id\s+uuid\s+required`, out)
	assert.Regexp(t, `id\s+uuid\s+default`, out)
	assert.Regexp(t, `kind\s+response_kind \(enum\)\s+nullable`, out)
}

func TestRenderColumns_Absent(t *testing.T) {
	out := renderColumns(schema.TableSchema{Schema: "public", Table: "nope"})
	assert.Contains(t, out, "table not found")
}

func TestWriteColumnsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeColumnsJSON(&buf, sampleTable()))

	var got struct {
		Table    string              `json:"table"`
		Columns  []schema.ColumnMeta `json:"columns"`
		Required []string            `json:"required"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "task_responses", got.Table)
	assert.Len(t, got.Columns, 4)
	assert.Equal(t, []string{"task_id"}, got.Required)
}
