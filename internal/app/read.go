package app

import (
	"context"
	"fmt"

	"github.com/joacominatel/auditcoe/internal/database"
	"github.com/joacominatel/auditcoe/internal/query"
	"github.com/joacominatel/auditcoe/internal/schema"
)

// Fields the API would like to return, in response order.
var (
	auditRunFields = []string{"id", "account_id", "template_id", "status", "started_at", "due_at", "created_at"}
	taskFields     = []string{
		"id", "audit_run_id", "account_id", "title", "description", "status",
		"priority", "assignee_id", "due_at", "created_at", "updated_at",
	}
)

// Historical names of the tasks -> audit_runs foreign key.
var auditRunFKCandidates = []string{"audit_run_id", "audit_runs_id", "run_id"}

const orderColumn = "created_at"

// ColumnsResult lists the live columns of one table.
type ColumnsResult struct {
	Schema  string   `json:"schema"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Count   int      `json:"count"`
}

// Listing is the response of a list operation.
type Listing struct {
	Items           []database.Row `json:"items"`
	Count           int            `json:"count"`
	SelectedColumns []string       `json:"selected_columns"`
}

// AuditRunFilter narrows ListAuditRuns. Zero Limit means the default.
type AuditRunFilter struct {
	AccountID string
	Limit     int
}

// TaskFilter narrows ListTasks. Zero Limit means the default.
type TaskFilter struct {
	AuditRunID string
	AccountID  string
	Status     string
	Limit      int
}

// DebugColumns reports the live column names of schemaName.table. An absent
// table yields an empty list.
func (s *Service) DebugColumns(ctx context.Context, schemaName, table string) (*ColumnsResult, error) {
	if table == "" {
		return nil, InvalidRequest("missing_table_param", "query parameter table is required")
	}
	if schemaName == "" {
		schemaName = s.schema
	}

	var out *ColumnsResult
	err := s.withSession(ctx, func(sess database.Session) error {
		ts, err := schema.Inspect(ctx, sess, schemaName, table)
		if err != nil {
			return errSchemaLookup(table, err)
		}
		names := ts.Names()
		out = &ColumnsResult{Schema: schemaName, Table: table, Columns: names, Count: len(names)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DescribeTable returns the full live column metadata of schemaName.table.
func (s *Service) DescribeTable(ctx context.Context, schemaName, table string) (schema.TableSchema, error) {
	if table == "" {
		return schema.TableSchema{}, InvalidRequest("missing_table_param", "a table name is required")
	}
	if schemaName == "" {
		schemaName = s.schema
	}

	var ts schema.TableSchema
	err := s.withSession(ctx, func(sess database.Session) error {
		var err error
		if ts, err = schema.Inspect(ctx, sess, schemaName, table); err != nil {
			return errSchemaLookup(table, err)
		}
		return nil
	})
	return ts, err
}

// ListAuditRuns returns the newest audit runs, optionally for one account.
func (s *Service) ListAuditRuns(ctx context.Context, f AuditRunFilter) (*Listing, error) {
	accountID, err := parseOptionalID("invalid_account_id", "account_id", f.AccountID)
	if err != nil {
		return nil, err
	}
	limit, err := query.RunLimit.Resolve(f.Limit)
	if err != nil {
		return nil, InvalidRequest("invalid_limit", err.Error())
	}

	var out *Listing
	err = s.withSession(ctx, func(sess database.Session) error {
		runs, err := s.requireTable(ctx, sess, TableAuditRuns)
		if err != nil {
			return err
		}
		selection, err := selectable(auditRunFields, runs)
		if err != nil {
			return err
		}

		var filters query.Filters
		if accountID != "" {
			filters.AddIfPresent(runs, "", "account_id", query.OpEq, accountID)
		}

		out, err = s.list(ctx, sess, query.SelectSpec{
			Table:   query.TableOf(runs, ""),
			Columns: selection,
			Filters: filters,
			OrderBy: query.OrderColumn(orderColumn, runs, selection),
			Limit:   limit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTasks returns the newest tasks matching f. An account filter uses the
// tasks.account_id column when present and otherwise joins audit_runs.
func (s *Service) ListTasks(ctx context.Context, f TaskFilter) (*Listing, error) {
	runID, err := parseOptionalID("invalid_audit_run_id", "audit_run_id", f.AuditRunID)
	if err != nil {
		return nil, err
	}
	accountID, err := parseOptionalID("invalid_account_id", "account_id", f.AccountID)
	if err != nil {
		return nil, err
	}
	limit, err := query.TaskLimit.Resolve(f.Limit)
	if err != nil {
		return nil, InvalidRequest("invalid_limit", err.Error())
	}

	const alias = "t"

	var out *Listing
	err = s.withSession(ctx, func(sess database.Session) error {
		tasks, err := s.requireTable(ctx, sess, TableTasks)
		if err != nil {
			return err
		}
		selection, err := selectable(taskFields, tasks)
		if err != nil {
			return err
		}

		spec := query.SelectSpec{
			Table:   query.TableOf(tasks, alias),
			Columns: selection,
			OrderBy: query.OrderColumn(orderColumn, tasks, selection),
			Limit:   limit,
		}

		runFK, hasRunFK := schema.ResolveAlias(auditRunFKCandidates, tasks)
		if runID != "" && hasRunFK {
			spec.Filters.AddIfPresent(tasks, alias, runFK, query.OpEq, runID)
		}
		if f.Status != "" {
			spec.Filters.AddIfPresent(tasks, alias, "status", query.OpEq, f.Status)
		}

		if accountID != "" {
			if !spec.Filters.AddIfPresent(tasks, alias, "account_id", query.OpEq, accountID) {
				join, filter, err := s.accountJoin(ctx, sess, tasks, runFK, hasRunFK, accountID)
				if err != nil {
					return err
				}
				spec.Join = join
				spec.Filters = append(spec.Filters, filter)
			}
		}

		out, err = s.list(ctx, sess, spec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// accountJoin builds the tasks -> audit_runs join used to filter tasks by
// account when tasks has no account column of its own.
func (s *Service) accountJoin(ctx context.Context, sess database.Session, tasks schema.TableSchema, runFK string, hasRunFK bool, accountID string) (*query.Join, query.Filter, error) {
	const runAlias = "ar"

	runs, err := s.inspect(ctx, sess, TableAuditRuns)
	if err != nil {
		return nil, query.Filter{}, err
	}

	if !hasRunFK || !runs.Has("id") || !runs.Has("account_id") {
		e := errSchemaMismatch("tasks_cannot_filter_account_id",
			fmt.Sprintf("tasks has no account_id and cannot be joined to audit_runs (needs tasks.%s, audit_runs.id, audit_runs.account_id)",
				auditRunFKCandidates[0])).
			With("tasks_columns", tasks.Names()).
			With("audit_runs_columns", runs.Names())
		return nil, query.Filter{}, e
	}

	join := &query.Join{Table: query.TableOf(runs, runAlias), Column: "id", BaseColumn: runFK}
	filter := query.Filter{Table: runAlias, Column: "account_id", Op: query.OpEq, Value: accountID}
	return join, filter, nil
}

func (s *Service) list(ctx context.Context, sess database.Session, spec query.SelectSpec) (*Listing, error) {
	sql, args, err := query.BuildSelect(spec)
	if err != nil {
		return nil, errExecution("query_build_failed", "could not build the listing query", err)
	}

	rows, err := sess.QueryRows(ctx, sql, args...)
	if err != nil {
		return nil, errExecution("query_failed", fmt.Sprintf("listing %s failed", spec.Table.Name), err)
	}
	if rows == nil {
		rows = []database.Row{}
	}

	return &Listing{Items: rows, Count: len(rows), SelectedColumns: spec.Columns}, nil
}

// selectable intersects desired with ts and rejects an empty result.
func selectable(desired []string, ts schema.TableSchema) ([]string, error) {
	selection := schema.Intersect(desired, ts)
	if len(selection) == 0 {
		return nil, errNoUsableColumns(ts.Table, desired, ts.Names())
	}
	return selection, nil
}
