package app

import (
	"context"
	"errors"
	"testing"

	"github.com/joacominatel/auditcoe/internal/database"
	"github.com/joacominatel/auditcoe/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accountID = "0b7c5d8e-2a71-4c1e-9d55-7f3a2b1c0e99"
	runID     = "5e1f0c2a-8d3b-4f6e-a1b2-c3d4e5f60718"
)

func TestDebugColumns(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{"tasks": dbtest.Text("id", "status")})

	res, err := svc.DebugColumns(context.Background(), "", "tasks")
	require.NoError(t, err)
	assert.Equal(t, &ColumnsResult{Schema: "public", Table: "tasks", Columns: []string{"id", "status"}, Count: 2}, res)
	assert.Equal(t, 1, d.Session.Released)
}

func TestDebugColumns_AbsentTable(t *testing.T) {
	svc, _ := newFake(nil)

	res, err := svc.DebugColumns(context.Background(), "audit", "nope")
	require.NoError(t, err)
	assert.Equal(t, "audit", res.Schema)
	assert.Equal(t, []string{}, res.Columns)
	assert.Zero(t, res.Count)
}

func TestDebugColumns_Errors(t *testing.T) {
	svc, d := newFake(nil)

	_, err := svc.DebugColumns(context.Background(), "", "")
	assert.True(t, IsKind(err, KindInvalidRequest))
	assert.Zero(t, d.Acquired)

	d.Session.ColumnsErr = errors.New("connection reset")
	_, err = svc.DebugColumns(context.Background(), "", "tasks")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSchemaLookup))
	assert.Equal(t, "schema_lookup_failed", AsError(err).Code)
	assert.Equal(t, 1, d.Session.Released)
}

func TestDescribeTable(t *testing.T) {
	svc, _ := newFake(map[string][]database.Column{
		"task_responses": {dbtest.Defaulted("id", "uuid"), dbtest.Required("task_id", "uuid")},
	})

	ts, err := svc.DescribeTable(context.Background(), "", "task_responses")
	require.NoError(t, err)
	assert.Equal(t, "public", ts.Schema)
	require.Len(t, ts.Columns, 2)
	assert.True(t, ts.Columns[0].HasDefault)
	assert.False(t, ts.Columns[1].Nullable)

	_, err = svc.DescribeTable(context.Background(), "", "")
	assert.Equal(t, "missing_table_param", AsError(err).Code)
}

func TestListAuditRuns_DegradesToPresentColumns(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{
		"audit_runs": dbtest.Text("id", "account_id", "status", "created_at"),
	})
	d.Session.Rows = []database.Row{{"id": "r1"}, {"id": "r2"}}

	res, err := svc.ListAuditRuns(context.Background(), AuditRunFilter{AccountID: accountID})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "account_id", "status", "created_at"}, res.SelectedColumns)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, d.Session.Rows, res.Items)

	require.Len(t, d.Session.Statements, 1)
	st := d.Session.Statements[0]
	assert.Equal(t, `SELECT "id", "account_id", "status", "created_at" FROM "public"."audit_runs" WHERE "account_id" = $1 ORDER BY "created_at" DESC LIMIT 50`, st.SQL)
	assert.Equal(t, []any{accountID}, st.Args)
	assert.Equal(t, 1, d.Session.Released)
}

func TestListAuditRuns_AbsentFilterColumnIsOmitted(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{"audit_runs": dbtest.Text("id", "status")})

	res, err := svc.ListAuditRuns(context.Background(), AuditRunFilter{AccountID: accountID, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []database.Row{}, res.Items)
	assert.Zero(t, res.Count)

	st := d.Session.Statements[0]
	assert.NotContains(t, st.SQL, "WHERE")
	assert.Contains(t, st.SQL, `ORDER BY "id" DESC LIMIT 5`)
	assert.Empty(t, st.Args)
}

func TestListAuditRuns_Errors(t *testing.T) {
	tests := []struct {
		name   string
		tables map[string][]database.Column
		filter AuditRunFilter
		code   string
		kind   Kind
	}{
		{"malformed account", nil, AuditRunFilter{AccountID: "acc-1"}, "invalid_account_id", KindInvalidIdentifier},
		{"limit too large", nil, AuditRunFilter{Limit: 501}, "invalid_limit", KindInvalidRequest},
		{"limit negative", nil, AuditRunFilter{Limit: -1}, "invalid_limit", KindInvalidRequest},
		{"table absent", nil, AuditRunFilter{}, "missing_table", KindSchemaMismatch},
		{"no usable columns", map[string][]database.Column{"audit_runs": dbtest.Text("foo")}, AuditRunFilter{}, "no_usable_columns", KindNoUsableColumns},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, d := newFake(tc.tables)
			_, err := svc.ListAuditRuns(context.Background(), tc.filter)
			require.Error(t, err)
			e := AsError(err)
			assert.Equal(t, tc.code, e.Code)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Empty(t, d.Session.Statements)
		})
	}
}

func TestListAuditRuns_QueryFailure(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{"audit_runs": dbtest.Text("id")})
	d.Session.QueryErr = errors.New("permission denied")

	_, err := svc.ListAuditRuns(context.Background(), AuditRunFilter{})
	require.Error(t, err)
	assert.Equal(t, "query_failed", AsError(err).Code)
	assert.ErrorContains(t, err, "permission denied")
	assert.Equal(t, 1, d.Session.Released)
}

func TestListAuditRuns_NotConfigured(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.ListAuditRuns(context.Background(), AuditRunFilter{})
	assert.True(t, IsKind(err, KindConfiguration))
	assert.Equal(t, "configuration_error", AsError(err).Code)
}

func TestListAuditRuns_AcquireFailure(t *testing.T) {
	svc, d := newFake(nil)
	d.AcquireErr = errors.New("too many clients")

	_, err := svc.ListAuditRuns(context.Background(), AuditRunFilter{})
	assert.Equal(t, "connection_failed", AsError(err).Code)
	assert.Zero(t, d.Session.Released)
}

func TestListTasks_Filters(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{
		"tasks": dbtest.Text("id", "audit_run_id", "account_id", "title", "status", "created_at"),
	})

	res, err := svc.ListTasks(context.Background(), TaskFilter{
		AuditRunID: runID,
		AccountID:  accountID,
		Status:     "open",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "audit_run_id", "account_id", "title", "status", "created_at"}, res.SelectedColumns)

	st := d.Session.Statements[0]
	assert.Equal(t, `SELECT "t"."id", "t"."audit_run_id", "t"."account_id", "t"."title", "t"."status", "t"."created_at" `+
		`FROM "public"."tasks" AS "t" `+
		`WHERE "t"."audit_run_id" = $1 AND "t"."status" = $2 AND "t"."account_id" = $3 `+
		`ORDER BY "t"."created_at" DESC LIMIT 200`, st.SQL)
	assert.Equal(t, []any{runID, "open", accountID}, st.Args)
}

func TestListTasks_AliasedRunColumn(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{"tasks": dbtest.Text("id", "run_id")})

	_, err := svc.ListTasks(context.Background(), TaskFilter{AuditRunID: runID, Limit: 1000})
	require.NoError(t, err)

	st := d.Session.Statements[0]
	assert.Contains(t, st.SQL, `WHERE "t"."run_id" = $1`)
	assert.Contains(t, st.SQL, "LIMIT 1000")
}

func TestListTasks_AccountViaJoin(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{
		"tasks":      dbtest.Text("id", "audit_run_id", "status", "created_at"),
		"audit_runs": dbtest.Text("id", "account_id"),
	})

	_, err := svc.ListTasks(context.Background(), TaskFilter{AccountID: accountID})
	require.NoError(t, err)

	st := d.Session.Statements[0]
	assert.Contains(t, st.SQL, `JOIN "public"."audit_runs" AS "ar" ON "ar"."id" = "t"."audit_run_id"`)
	assert.Contains(t, st.SQL, `WHERE "ar"."account_id" = $1`)
	assert.Equal(t, []any{accountID}, st.Args)
}

func TestListTasks_CannotFilterAccount(t *testing.T) {
	svc, d := newFake(map[string][]database.Column{
		"tasks":      dbtest.Text("id", "audit_run_id", "status"),
		"audit_runs": dbtest.Text("status", "created_at"),
	})

	_, err := svc.ListTasks(context.Background(), TaskFilter{AccountID: accountID})
	require.Error(t, err)

	e := AsError(err)
	assert.Equal(t, "tasks_cannot_filter_account_id", e.Code)
	assert.Equal(t, KindSchemaMismatch, e.Kind)
	assert.Equal(t, []string{"id", "audit_run_id", "status"}, e.Context["tasks_columns"])
	assert.Equal(t, []string{"status", "created_at"}, e.Context["audit_runs_columns"])
	assert.Empty(t, d.Session.Statements)
	assert.Equal(t, 1, d.Session.Released)

	body := e.Payload()
	assert.Equal(t, "tasks_cannot_filter_account_id", body["error"])
	assert.NotEmpty(t, body["detail"])
	assert.Contains(t, body, "tasks_columns")
	assert.Contains(t, body, "audit_runs_columns")
}

func TestListTasks_CannotFilterAccountWithoutRunKey(t *testing.T) {
	svc, _ := newFake(map[string][]database.Column{
		"tasks":      dbtest.Text("id", "status"),
		"audit_runs": dbtest.Text("id", "account_id"),
	})

	_, err := svc.ListTasks(context.Background(), TaskFilter{AccountID: accountID})
	assert.Equal(t, "tasks_cannot_filter_account_id", AsError(err).Code)
}

func TestListTasks_InvalidInput(t *testing.T) {
	svc, d := newFake(nil)

	_, err := svc.ListTasks(context.Background(), TaskFilter{AuditRunID: "run-1"})
	assert.Equal(t, "invalid_audit_run_id", AsError(err).Code)

	_, err = svc.ListTasks(context.Background(), TaskFilter{AccountID: "x"})
	assert.Equal(t, "invalid_account_id", AsError(err).Code)

	_, err = svc.ListTasks(context.Background(), TaskFilter{Limit: 1001})
	assert.Equal(t, "invalid_limit", AsError(err).Code)

	assert.Zero(t, d.Acquired)
}

func TestPing(t *testing.T) {
	svc, _ := newFake(nil)
	assert.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, "audit", svc.DatabaseName())
	assert.True(t, svc.Configured())

	unconfigured := NewService(nil)
	assert.True(t, IsKind(unconfigured.Ping(context.Background()), KindConfiguration))
	assert.Empty(t, unconfigured.DatabaseName())
	assert.False(t, unconfigured.Configured())
}
