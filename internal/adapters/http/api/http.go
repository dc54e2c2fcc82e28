// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/okian/grader/internal/adapters/http/site"
	"github.com/okian/grader/internal/domain/grading"
	"github.com/okian/grader/internal/domain/model"
	"github.com/okian/grader/internal/domain/prediction"
	"github.com/okian/grader/pkg/logger"
)

const defaultMaxBodyBytes = 1 << 20

// PredictionDependencies is the prediction side of the service.
type PredictionDependencies interface {
	Predict(ctx context.Context, raw prediction.RawInput) (prediction.Result, error)
	Ready() bool
	Features() []string
	GradeScale() grading.Scale
}

// StudentDependencies is the student records side of the service.
type StudentDependencies interface {
	CreateStudent(ctx context.Context, s model.Student) (model.Student, error)
	GetStudent(ctx context.Context, rollNumber string) (model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	SearchStudents(ctx context.Context, f model.StudentFilter) ([]model.Student, error)
	UpdateStudent(ctx context.Context, rollNumber string, u model.StudentUpdate) (model.Student, error)
	DeleteStudent(ctx context.Context, rollNumber string) error
	ExportStudentsCSV(ctx context.Context, w io.Writer) (int, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PredictionDependencies
	StudentDependencies
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBodyBytes caps request bodies read by POST and PUT handlers.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRenderer sets the HTML page renderer.
func WithRenderer(r *site.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets the logger used for request and error logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxBodyBytes int64
	renderer     *site.Renderer
	logger       logger.Logger

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	predictHandler  *PredictHandler
	indexHandler    *IndexHandler
	studentsHandler *StudentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxBodyBytes: defaultMaxBodyBytes}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.renderer == nil {
		s.renderer = site.MustRenderer()
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.predictHandler = NewPredictHandler(deps, s.renderer, s.maxBodyBytes, s.logger)
	s.indexHandler = NewIndexHandler(deps, s.renderer, s.logger)
	s.studentsHandler = NewStudentsHandler(deps, s.maxBodyBytes)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/students.csv", MetricsMiddleware(s.studentsHandler.HandleExport, "students_export"))
	mux.HandleFunc("/students/search", MetricsMiddleware(s.studentsHandler.HandleSearch, "students_search"))
	mux.HandleFunc("/students", MetricsMiddleware(s.studentsHandler.HandleCollection, "students"))
	mux.HandleFunc("/students/", MetricsMiddleware(s.studentsHandler.HandleItem, "student"))
	mux.HandleFunc("/", MetricsMiddleware(s.indexHandler.HandleIndex, "index"))
}

// Handler wraps mux with the request-scoped middleware chain.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return RequestIDMiddleware(RecoverMiddleware(AccessLogMiddleware(mux, s.logger), s.logger))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type validationResponse struct {
	Errors map[string]string `json:"errors"`
}

// writeJSON encodes v in full before writing the status. An encoding
// failure is sent as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		payload, _ = json.Marshal(errorResponse{
			Code:    "internal",
			Message: WrapKind("encode", ErrInternal, err).Error(),
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, op string, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
}
