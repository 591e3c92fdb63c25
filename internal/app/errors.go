package app

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	// KindConfiguration means the database connection string is absent.
	KindConfiguration Kind = "ConfigurationError"

	// KindSchemaLookup means the catalog query failed.
	KindSchemaLookup Kind = "SchemaLookupError"

	// KindNoUsableColumns means none of the desired fields exist.
	KindNoUsableColumns Kind = "NoUsableColumnsError"

	// KindSchemaMismatch means an expected table, key or join column is absent.
	KindSchemaMismatch Kind = "SchemaMismatchError"

	// KindInvalidIdentifier means the caller supplied a malformed UUID.
	KindInvalidIdentifier Kind = "InvalidIdentifierError"

	// KindMissingRequiredFields means an insert would leave NOT NULL columns empty.
	KindMissingRequiredFields Kind = "MissingRequiredFieldsError"

	// KindNotFound means a referenced row does not exist.
	KindNotFound Kind = "NotFoundError"

	// KindExecution means a statement failed to execute.
	KindExecution Kind = "ExecutionError"

	// KindInvalidRequest means the request itself was malformed.
	KindInvalidRequest Kind = "InvalidRequestError"
)

// Error is the structured failure every Service operation returns.
type Error struct {
	Kind Kind

	// Code is the machine-readable identifier sent to clients.
	Code string

	// Detail is a human-readable description.
	Detail string

	// Step is the write state the operation was in, if any.
	Step WriteStep

	// Context carries extra diagnostic fields for the client.
	Context map[string]any

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Payload renders the error as a response body: error, detail and every
// context field.
func (e *Error) Payload() map[string]any {
	body := make(map[string]any, len(e.Context)+2)
	for k, v := range e.Context {
		body[k] = v
	}
	body["error"] = e.Code
	body["detail"] = e.Detail
	return body
}

// With attaches a context field and returns e.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *Error) at(step WriteStep) *Error {
	e.Step = step
	return e
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError converts any error into an *Error, classifying unknown errors as
// execution failures.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindExecution, Code: "internal_error", Detail: err.Error(), Cause: err}
}

func newError(kind Kind, code, detail string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail, Cause: cause}
}

// ErrNotConfigured is returned by every database-backed operation when no
// connection string was configured.
func ErrNotConfigured() *Error {
	return newError(KindConfiguration, "configuration_error", "DATABASE_URL is not set", nil)
}

// ErrEncoding reports a result that could not be rendered as JSON.
func ErrEncoding(cause error) *Error {
	return newError(KindExecution, "encoding_failed", fmt.Sprintf("response could not be encoded: %v", cause), cause)
}

func errSchemaLookup(table string, cause error) *Error {
	return newError(KindSchemaLookup, "schema_lookup_failed",
		fmt.Sprintf("could not read columns of %s", table), cause).With("table", table)
}

func errNoUsableColumns(table string, desired, actual []string) *Error {
	return newError(KindNoUsableColumns, "no_usable_columns",
		fmt.Sprintf("none of the expected columns exist in %s", table), nil).
		With("table", table).
		With("expected_columns", desired).
		With("actual_columns", actual)
}

func errMissingTable(table string) *Error {
	return newError(KindSchemaMismatch, "missing_table",
		fmt.Sprintf("table %s does not exist or has no columns", table), nil).With("table", table)
}

func errSchemaMismatch(code, detail string) *Error {
	return newError(KindSchemaMismatch, code, detail, nil)
}

func errInvalidID(code, field, value string, cause error) *Error {
	return newError(KindInvalidIdentifier, code,
		fmt.Sprintf("%s must be a UUID", field), cause).With(field, value)
}

func errMissingRequired(table string, missing []string) *Error {
	return newError(KindMissingRequiredFields, "missing_required_fields",
		fmt.Sprintf("%s requires values for NOT NULL columns without defaults", table), nil).
		With("table", table).
		With("missing", missing)
}

func errNotFound(code, detail string) *Error {
	return newError(KindNotFound, code, detail, nil)
}

func errExecution(code, detail string, cause error) *Error {
	return newError(KindExecution, code, detail, cause)
}

// InvalidRequest builds an error for malformed input detected before any
// database work.
func InvalidRequest(code, detail string) *Error {
	return newError(KindInvalidRequest, code, detail, nil)
}
