package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-http-utils/headers"
	"github.com/go-playground/validator/v10"
	"github.com/joacominatel/auditcoe/internal/app"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	serverName  = "auditcoe"
	maxBodySize = 1 << 20
)

const (
	healthRoute        = "/health"
	healthDBRoute      = "/health/db"
	debugColumnsRoute  = "/debug/columns"
	auditRunsRoute     = "/audit-runs"
	tasksRoute         = "/tasks"
	taskResponsesRoute = "/task-responses"
)

// Options configures the HTTP layer.
type Options struct {
	// AllowedOrigins are the browser origins CORS admits.
	AllowedOrigins []string

	// Compress enables gzip responses.
	Compress bool
}

// Server exposes the Service over HTTP. Every handled request gets a JSON
// body and status 200; failures are signalled by an "error" field.
type Server struct {
	svc      *app.Service
	log      *zap.Logger
	opts     Options
	validate *validator.Validate
}

// New creates a Server.
func New(svc *app.Service, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{svc: svc, log: log, opts: opts, validate: v}
}

// Handler returns the full middleware chain and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get(healthRoute, s.health)
	r.Get(healthDBRoute, s.healthDB)
	r.Get(debugColumnsRoute, s.debugColumns)
	r.Get(auditRunsRoute, s.listAuditRuns)
	r.Get(tasksRoute, s.listTasks)
	r.Post(taskResponsesRoute, s.createTaskResponse)

	var h http.Handler = r
	if s.opts.Compress {
		h = gzhttp.GzipHandler(h)
	}

	h = cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(h)

	return setServerHeader(h)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()

	s.log.Info("auditcoe started",
		zap.String("host-port", l.Addr().String()),
		zap.Strings("allowed-origins", s.opts.AllowedOrigins),
		zap.Bool("compress", s.opts.Compress),
		zap.Bool("database-configured", s.svc.Configured()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("shutdown", zap.Error(err))
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("shutdown complete")
	return nil
}

// requestLogger logs one line per request once the response is written.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request-id", middleware.GetReqID(r.Context())))
		}()

		next.ServeHTTP(ww, r)
	})
}

// Set the server header
func setServerHeader(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headers.Server, serverName)
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
