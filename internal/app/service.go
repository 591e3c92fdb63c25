package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/joacominatel/auditcoe/internal/database"
	"github.com/joacominatel/auditcoe/internal/schema"
	"go.uber.org/zap"
)

// Table names the API reads and writes.
const (
	TableAuditRuns     = "audit_runs"
	TableTasks         = "tasks"
	TableTaskResponses = "task_responses"
)

// Service coordinates request-level operations between the HTTP layer and
// the database. It holds no per-request state; every call acquires its own
// session and reads the live schema afresh.
type Service struct {
	driver database.Driver
	schema string
	log    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSchema sets the database namespace holding the audit tables.
func WithSchema(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.schema = name
		}
	}
}

// WithLogger sets the logger used for aborted writes and advisory failures.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a new application service. A nil driver is allowed;
// every database-backed operation then fails with a configuration error.
func NewService(driver database.Driver, opts ...Option) *Service {
	s := &Service{driver: driver, schema: schema.DefaultSchema, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes the database connection pool.
func (s *Service) Connect(ctx context.Context, dsn string) error {
	if s.driver == nil || dsn == "" {
		return ErrNotConfigured()
	}
	if err := s.driver.Connect(ctx, dsn); err != nil {
		return errExecution("connection_failed", "could not connect to the database", err)
	}
	return nil
}

// Disconnect closes the database connection.
func (s *Service) Disconnect() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close()
}

// Ping checks that the database answers.
func (s *Service) Ping(ctx context.Context) error {
	if s.driver == nil {
		return ErrNotConfigured()
	}
	if err := s.driver.Ping(ctx); err != nil {
		return errExecution("connection_failed", "database did not answer", err)
	}
	return nil
}

// Configured reports whether a database driver is available.
func (s *Service) Configured() bool {
	return s.driver != nil
}

// DatabaseName returns the current database name.
func (s *Service) DatabaseName() string {
	if s.driver == nil {
		return ""
	}
	return s.driver.DatabaseName()
}

// withSession runs fn on a freshly acquired session and releases it on
// every path out.
func (s *Service) withSession(ctx context.Context, fn func(database.Session) error) error {
	if s.driver == nil {
		return ErrNotConfigured()
	}
	sess, err := s.driver.Acquire(ctx)
	if err != nil {
		return errExecution("connection_failed", "could not acquire a database connection", err)
	}
	defer sess.Release()
	return fn(sess)
}

// inspect loads one table of the configured namespace.
func (s *Service) inspect(ctx context.Context, sess database.Session, table string) (schema.TableSchema, error) {
	ts, err := schema.Inspect(ctx, sess, s.schema, table)
	if err != nil {
		return schema.TableSchema{}, errSchemaLookup(table, err)
	}
	return ts, nil
}

// requireTable is inspect plus the "table absent" check.
func (s *Service) requireTable(ctx context.Context, sess database.Session, table string) (schema.TableSchema, error) {
	ts, err := s.inspect(ctx, sess, table)
	if err != nil {
		return ts, err
	}
	if ts.IsEmpty() {
		return ts, errMissingTable(table)
	}
	return ts, nil
}

// parseOptionalID validates an optional UUID filter and returns its
// canonical form.
func parseOptionalID(code, field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return "", errInvalidID(code, field, value, err)
	}
	return id.String(), nil
}
