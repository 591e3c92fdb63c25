package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/joacominatel/auditcoe/internal/database"
	"github.com/joacominatel/auditcoe/internal/query"
	"github.com/joacominatel/auditcoe/internal/schema"
	"go.uber.org/zap"
)

// WriteStep is a state of the task-response write.
type WriteStep int

const (
	StepValidating WriteStep = iota + 1
	StepResolvingSchema
	StepCheckingRequired
	StepConfirmingParent
	StepInserting
	StepUpdatingParent
	StepDone
)

func (s WriteStep) String() string {
	switch s {
	case StepValidating:
		return "validating"
	case StepResolvingSchema:
		return "resolving_schema"
	case StepCheckingRequired:
		return "checking_required"
	case StepConfirmingParent:
		return "confirming_parent_exists"
	case StepInserting:
		return "inserting"
	case StepUpdatingParent:
		return "updating_parent"
	case StepDone:
		return "done"
	default:
		return ""
	}
}

// parentStatus is written to the parent task when its status column is
// free text.
const parentStatus = "in_progress"

// Candidate physical names for each logical task-response field, in
// priority order.
var (
	taskFKCandidates        = []string{"task_id", "tasks_id", "task_uuid"}
	responseTextCandidates  = []string{"response_text", "response", "text", "answer"}
	responseTypeCandidates  = []string{"response_type", "type", "kind"}
	valueBoolCandidates     = []string{"value_bool", "bool_value", "answer_bool"}
	valueNumberCandidates   = []string{"value_number", "number_value", "numeric_value"}
	userIDCandidates        = []string{"user_id", "responded_by", "created_by"}
	parentTouchedCandidates = []string{"last_response_at", "updated_at"}
)

// TaskResponseInput is a task response as submitted. Nil fields were not
// supplied.
type TaskResponseInput struct {
	TaskID       string
	ResponseText *string
	ResponseType *string
	ValueBool    *bool
	ValueNumber  *float64
	UserID       *string
}

// ParentUpdate reports the advisory update of the parent task.
type ParentUpdate struct {
	Applied       bool     `json:"applied"`
	Columns       []string `json:"columns"`
	StatusSkipped bool     `json:"status_skipped,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// TaskResponseResult is a saved task response.
type TaskResponseResult struct {
	TaskID string

	// Returned holds the RETURNING columns of the insert.
	Returned database.Row

	// Ignored lists supplied fields the table has no column for.
	Ignored []string

	ParentUpdate ParentUpdate
}

// Payload renders the result as a response body.
func (r *TaskResponseResult) Payload() map[string]any {
	body := make(map[string]any, len(r.Returned)+4)
	for k, v := range r.Returned {
		body[k] = v
	}
	body["status"] = "saved"
	body["task_id"] = r.TaskID
	body["parent_update"] = r.ParentUpdate
	if len(r.Ignored) > 0 {
		body["ignored_fields"] = r.Ignored
	}
	return body
}

// responseWrite carries one task-response write through its states.
type responseWrite struct {
	svc  *Service
	in   TaskResponseInput
	step WriteStep

	taskID    string
	responses schema.TableSchema
	tasks     schema.TableSchema
	taskFK    string
	plan      *query.InsertPlan
	ignored   []string
}

// CreateTaskResponse stores a response for a task and then, best effort,
// touches the parent task. A failed parent update is reported in the result
// and never undoes the insert.
func (s *Service) CreateTaskResponse(ctx context.Context, in TaskResponseInput) (*TaskResponseResult, error) {
	w := &responseWrite{svc: s, in: in}

	res, err := w.run(ctx)
	if err != nil {
		e := AsError(err)
		if e.Step == 0 {
			e.Step = w.step
		}
		s.log.Warn("task response aborted",
			zap.String("step", e.Step.String()),
			zap.String("code", e.Code),
			zap.String("task_id", in.TaskID),
			zap.Error(e.Cause))
		return nil, e
	}
	return res, nil
}

func (w *responseWrite) run(ctx context.Context) (*TaskResponseResult, error) {
	w.step = StepValidating
	id, err := uuid.Parse(w.in.TaskID)
	if err != nil {
		return nil, errInvalidID("invalid_task_id", "task_id", w.in.TaskID, err).at(StepValidating)
	}
	w.taskID = id.String()
	w.step = StepResolvingSchema

	var res *TaskResponseResult
	err = w.svc.withSession(ctx, func(sess database.Session) error {
		steps := []func(context.Context, database.Session) error{
			w.resolveSchema,
			w.checkRequired,
			w.confirmParent,
		}
		for _, step := range steps {
			if err := step(ctx, sess); err != nil {
				return err
			}
		}

		returned, err := w.insert(ctx, sess)
		if err != nil {
			return err
		}

		res = &TaskResponseResult{
			TaskID:       w.taskID,
			Returned:     returned,
			Ignored:      w.ignored,
			ParentUpdate: w.updateParent(ctx, sess),
		}
		w.step = StepDone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (w *responseWrite) resolveSchema(ctx context.Context, sess database.Session) error {
	w.step = StepResolvingSchema

	var err error
	if w.responses, err = w.svc.requireTable(ctx, sess, TableTaskResponses); err != nil {
		return err
	}
	if w.tasks, err = w.svc.requireTable(ctx, sess, TableTasks); err != nil {
		return err
	}

	fk, ok := schema.ResolveAlias(taskFKCandidates, w.responses)
	if !ok {
		return errSchemaMismatch("task_responses_missing_task_fk",
			fmt.Sprintf("%s has none of the task reference columns %v", TableTaskResponses, taskFKCandidates)).
			With("task_responses_columns", w.responses.Names())
	}
	if !w.tasks.Has("id") {
		return errSchemaMismatch("tasks_missing_id", fmt.Sprintf("%s has no id column", TableTasks)).
			With("tasks_columns", w.tasks.Names())
	}
	w.taskFK = fk

	w.plan = query.NewInsertPlan()
	w.plan.Set(fk, w.taskID)
	w.bind("response_text", responseTextCandidates, w.in.ResponseText != nil, deref(w.in.ResponseText))
	w.bind("response_type", responseTypeCandidates, w.in.ResponseType != nil, deref(w.in.ResponseType))
	w.bind("value_bool", valueBoolCandidates, w.in.ValueBool != nil, deref(w.in.ValueBool))
	w.bind("value_number", valueNumberCandidates, w.in.ValueNumber != nil, deref(w.in.ValueNumber))
	w.bind("user_id", userIDCandidates, w.in.UserID != nil, deref(w.in.UserID))
	return nil
}

// bind adds a supplied logical field to the plan under its first matching
// physical column, or records it as ignored.
func (w *responseWrite) bind(field string, candidates []string, supplied bool, value any) {
	if !supplied {
		return
	}
	col, ok := schema.ResolveAlias(candidates, w.responses)
	if !ok {
		w.ignored = append(w.ignored, field)
		return
	}
	if _, taken := w.plan.Value(col); taken {
		w.ignored = append(w.ignored, field)
		return
	}
	w.plan.Set(col, value)
}

func (w *responseWrite) checkRequired(_ context.Context, _ database.Session) error {
	w.step = StepCheckingRequired
	if missing := schema.CheckRequired(w.responses, w.plan.Provided()); len(missing) > 0 {
		return errMissingRequired(TableTaskResponses, missing)
	}
	return nil
}

func (w *responseWrite) confirmParent(ctx context.Context, sess database.Session) error {
	w.step = StepConfirmingParent

	var filters query.Filters
	filters.AddIfPresent(w.tasks, "", "id", query.OpEq, w.taskID)
	sql, args, err := query.BuildSelect(query.SelectSpec{
		Table:   query.TableOf(w.tasks, ""),
		Columns: []string{"id"},
		Filters: filters,
		Limit:   1,
	})
	if err != nil {
		return errExecution("parent_lookup_failed", "could not build the task lookup", err)
	}

	row, err := sess.QueryRow(ctx, sql, args...)
	if err != nil {
		return errExecution("parent_lookup_failed", "task lookup failed", err)
	}
	if row == nil {
		return errNotFound("task_not_found", fmt.Sprintf("task %s does not exist", w.taskID)).
			With("task_id", w.taskID)
	}
	return nil
}

func (w *responseWrite) insert(ctx context.Context, sess database.Session) (database.Row, error) {
	w.step = StepInserting

	returning := schema.Intersect([]string{"id", w.taskFK, "created_at", "updated_at"}, w.responses)
	sql, args, err := query.BuildInsert(query.TableOf(w.responses, ""), w.plan, returning)
	if err != nil {
		return nil, errExecution("insert_failed", "could not build the insert", err)
	}

	row, err := sess.QueryRow(ctx, sql, args...)
	if err != nil {
		return nil, errExecution("insert_failed", fmt.Sprintf("insert into %s failed", TableTaskResponses), err)
	}
	if row == nil {
		row = database.Row{}
	}
	return row, nil
}

// updateParent touches the parent task's timestamp and, when the status
// column is free text, its status. Failures are returned in the report.
func (w *responseWrite) updateParent(ctx context.Context, sess database.Session) ParentUpdate {
	w.step = StepUpdatingParent
	report := ParentUpdate{Columns: []string{}}

	var set []query.Assignment
	if col, ok := schema.ResolveAlias(parentTouchedCandidates, w.tasks); ok {
		set = append(set, query.Assignment{Column: col, Value: query.Now})
	}
	if status, ok := w.tasks.Column("status"); ok {
		if status.IsEnumerated() {
			report.StatusSkipped = true
		} else {
			set = append(set, query.Assignment{Column: status.Name, Value: parentStatus})
		}
	}
	if len(set) == 0 {
		return report
	}

	sql, args, err := query.BuildUpdate(query.TableOf(w.tasks, ""), set,
		query.Filters{{Column: "id", Op: query.OpEq, Value: w.taskID}})
	if err == nil {
		_, err = sess.Exec(ctx, sql, args...)
	}
	if err != nil {
		report.Error = err.Error()
		w.svc.log.Warn("parent task update failed",
			zap.String("task_id", w.taskID),
			zap.Error(err))
		return report
	}

	report.Applied = true
	for _, a := range set {
		report.Columns = append(report.Columns, a.Column)
	}
	return report
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
