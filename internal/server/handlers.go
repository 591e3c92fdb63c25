package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-http-utils/headers"
	"github.com/go-playground/validator/v10"
	"github.com/joacominatel/auditcoe/internal/app"
	"github.com/joacominatel/auditcoe/internal/query"
	"go.uber.org/zap"
)

// taskResponseRequest is the POST /task-responses body.
type taskResponseRequest struct {
	TaskID       string   `json:"task_id" validate:"required"`
	ResponseText *string  `json:"response_text" validate:"omitempty,max=20000"`
	ResponseType *string  `json:"response_type" validate:"omitempty,max=64"`
	ValueBool    *bool    `json:"value_bool"`
	ValueNumber  *float64 `json:"value_number"`
	UserID       *string  `json:"user_id" validate:"omitempty,max=128"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// healthDB reports whether the database answers a ping.
func (s *Server) healthDB(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "database": s.svc.DatabaseName()})
}

// debugColumns handles GET /debug/columns?table=&schema=
func (s *Server) debugColumns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.svc.DebugColumns(r.Context(), q.Get("schema"), q.Get("table"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

// listAuditRuns handles GET /audit-runs?account_id=&limit=
func (s *Server) listAuditRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"), query.RunLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.svc.ListAuditRuns(r.Context(), app.AuditRunFilter{
		AccountID: q.Get("account_id"),
		Limit:     limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

// listTasks handles GET /tasks?audit_run_id=&account_id=&status=&limit=
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"), query.TaskLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.svc.ListTasks(r.Context(), app.TaskFilter{
		AuditRunID: q.Get("audit_run_id"),
		AccountID:  q.Get("account_id"),
		Status:     q.Get("status"),
		Limit:      limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

// createTaskResponse handles POST /task-responses.
func (s *Server) createTaskResponse(w http.ResponseWriter, r *http.Request) {
	var req taskResponseRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, app.InvalidRequest("invalid_body", fmt.Sprintf("request body is not valid JSON: %v", err)))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, validationError(err))
		return
	}

	res, err := s.svc.CreateTaskResponse(r.Context(), app.TaskResponseInput{
		TaskID:       req.TaskID,
		ResponseText: req.ResponseText,
		ResponseType: req.ResponseType,
		ValueBool:    req.ValueBool,
		ValueNumber:  req.ValueNumber,
		UserID:       req.UserID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res.Payload())
}

// fail writes err as a structured error body with status 200.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := app.AsError(err)

	switch e.Kind {
	case app.KindExecution, app.KindSchemaLookup, app.KindConfiguration:
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", e.Code),
			zap.Error(err))
	default:
		s.log.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", e.Code))
	}

	writeJSON(w, e.Payload())
}

// parseLimit reads the limit query parameter. Absent means the listing's
// default, signalled by 0; anything present must be an integer in 1..Max.
func parseLimit(raw string, bounds query.LimitBounds) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > bounds.Max {
		return 0, app.InvalidRequest("invalid_limit",
			fmt.Sprintf("limit must be an integer between 1 and %d", bounds.Max)).
			With("limit", raw)
	}
	return n, nil
}

// validationError reports the first failing field as invalid_<field>.
func validationError(err error) *app.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return app.InvalidRequest("invalid_body", err.Error())
	}
	fe := verrs[0]
	return app.InvalidRequest("invalid_"+fe.Field(),
		fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag()))
}

// writeJSON encodes data as JSON and writes it with status 200. A value
// that cannot be encoded is replaced by an encoding_failed error body.
func writeJSON(w http.ResponseWriter, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		buf.Reset()
		body := app.ErrEncoding(err).Payload()
		_ = json.NewEncoder(&buf).Encode(body)
	}

	w.Header().Set(headers.ContentType, "application/json")
	w.Header().Set(headers.CacheControl, "no-store")
	_, _ = w.Write(buf.Bytes())
}
