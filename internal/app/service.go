// Package service provides the application service that implements the
// dependencies required by the HTTP API and the command line tools.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/grader/internal/adapters/artifact"
	"github.com/okian/grader/internal/adapters/repository"
	"github.com/okian/grader/internal/domain/grading"
	"github.com/okian/grader/internal/domain/prediction"
	"github.com/okian/grader/pkg/logger"
	"github.com/okian/grader/pkg/metrics"
)

// Service wires the predictor and the student store.
type Service struct {
	mu sync.RWMutex

	// Core components
	predictor *prediction.Predictor
	students  repository.Store
	validator *studentValidator

	// Configuration
	modelPath    string
	featuresPath string
	databasePath string
	scale        grading.Scale

	// State
	started   bool
	startedAt time.Time
	loadErr   error
	ownsStore bool

	predictions        atomic.Int64
	validationFailures atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelPath sets the model bundle loaded by Start.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithFeaturesPath sets an optional feature order file.
func WithFeaturesPath(path string) Option {
	return func(s *Service) {
		s.featuresPath = path
	}
}

// WithDatabasePath sets the SQLite database opened by Start.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		s.databasePath = path
	}
}

// WithGradeScale sets the scale used to grade predictions.
func WithGradeScale(scale grading.Scale) Option {
	return func(s *Service) {
		if !scale.IsZero() {
			s.scale = scale
		}
	}
}

// WithPredictor uses p instead of loading a model from disk.
func WithPredictor(p *prediction.Predictor) Option {
	return func(s *Service) {
		s.predictor = p
	}
}

// WithStudentStore uses store instead of opening DatabasePath. The caller
// keeps ownership and closes it.
func WithStudentStore(store repository.Store) Option {
	return func(s *Service) {
		s.students = store
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scale:     grading.ReportCard,
		validator: newStudentValidator(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the model and opens the student store. A model that fails
// to load leaves the service running but not ready; a store that fails to
// open is returned as an error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting grader service...")

	if s.predictor == nil && s.modelPath != "" {
		s.predictor, s.loadErr = s.loadPredictor()
		if s.loadErr != nil {
			s.logger.Warn(ctx, "model not loaded; predictions disabled",
				logger.String("model_path", s.modelPath),
				logger.String("features_path", s.featuresPath),
				logger.Error(s.loadErr),
			)
		}
	}
	s.reportReadiness()

	if s.students == nil && s.databasePath != "" {
		store, err := repository.OpenSQLite(ctx, s.databasePath)
		if err != nil {
			return fmt.Errorf("open students: %w", err)
		}
		s.students = store
		s.ownsStore = true
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "grader service started",
		logger.Any("model_loaded", s.predictor != nil),
		logger.Any("features", s.predictor.Features()),
		logger.String("grade_scale", s.scale.Name()),
		logger.String("database_path", s.databasePath),
	)

	return nil
}

// Stop closes resources opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping grader service...")

	if s.ownsStore && s.students != nil {
		if err := s.students.Close(); err != nil {
			s.logger.Warn(context.Background(), "close student store failed", logger.Error(err))
		}
		s.students = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "grader service stopped")
}

// Reload reads the model artifacts again and swaps the predictor when they
// load. On failure the previous predictor keeps serving.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.modelPath == "" {
		return ErrNoModelPath
	}
	p, err := s.loadPredictor()
	if err != nil {
		s.logLocked().Warn(ctx, "model reload failed", logger.String("model_path", s.modelPath), logger.Error(err))
		return err
	}
	s.predictor, s.loadErr = p, nil
	s.reportReadiness()
	s.logLocked().Info(ctx, "model reloaded", logger.Any("features", p.Features()))
	return nil
}

func (s *Service) loadPredictor() (*prediction.Predictor, error) {
	return artifact.LoadPredictor(s.modelPath, s.featuresPath, prediction.WithGradeScale(s.scale))
}

func (s *Service) reportReadiness() {
	metrics.UpdateModelLoaded(s.predictor != nil, len(s.predictor.Features()))
}

func (s *Service) currentPredictor() *prediction.Predictor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predictor
}

func (s *Service) studentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.students == nil {
		return nil, repository.ErrUnavailable
	}
	return s.students, nil
}

// Ready reports whether predictions can be served.
func (s *Service) Ready() bool {
	return s.currentPredictor() != nil
}

// Features returns the expected feature order, empty when not ready.
func (s *Service) Features() []string {
	f := s.currentPredictor().Features()
	if f == nil {
		return []string{}
	}
	return f
}

// GradeScale returns the scale applied to predictions.
func (s *Service) GradeScale() grading.Scale {
	if p := s.currentPredictor(); p != nil {
		return p.GradeScale()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scale
}

// LoadError returns why the model is not loaded, if it failed to load.
func (s *Service) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	p := s.currentPredictor()
	features := s.Features()

	s.mu.RLock()
	stats := map[string]interface{}{
		"started":             s.started,
		"model_loaded":        p != nil,
		"model_path":          s.modelPath,
		"expected_features":   features,
		"grade_scale":         s.scale.Name(),
		"predictions":         s.predictions.Load(),
		"validation_failures": s.validationFailures.Load(),
	}
	if s.started {
		stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	if s.loadErr != nil {
		stats["load_error"] = s.loadErr.Error()
	}
	students := s.students
	s.mu.RUnlock()

	if p != nil {
		stats["grade_scale"] = p.GradeScale().Name()
	}
	if students != nil {
		if n, err := students.Count(context.Background()); err == nil {
			stats["students"] = n
			metrics.UpdateStudentsTotal(n)
		}
	}

	return stats
}
