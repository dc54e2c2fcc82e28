// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and GRADER_* environment variables on top.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/grader/internal/domain/grading"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// LogFile, when set, also writes logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ModelPath points at the trained model bundle (.json or .yaml).
	ModelPath string `koanf:"model_path"`

	// FeaturesPath optionally overrides the bundle's feature order with a
	// JSON list of names.
	FeaturesPath string `koanf:"features_path"`

	// DatabasePath is the SQLite file holding student records.
	DatabasePath string `koanf:"database_path"`

	// GradeScale names a built-in scale: report_card or labeling.
	GradeScale string `koanf:"grade_scale"`

	// GradeThresholds replaces the named scale with custom minimums,
	// e.g. {A: 90, B: 80}.
	GradeThresholds map[string]float64 `koanf:"grade_thresholds"`

	// GradeFallback is the grade below the lowest threshold.
	GradeFallback string `koanf:"grade_fallback"`

	// MaxBodyBytes caps request bodies on POST/PUT endpoints.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Metrics naming. Names are namespace_subsystem_prefix_metric with
	// empty parts skipped.
	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsSubsystem string            `koanf:"metrics_subsystem"`
	MetricsPrefix    string            `koanf:"metrics_prefix"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`

	// MetricsBuckets overrides the latency histogram buckets (milliseconds).
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsRefreshInterval is how often system gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":8080",
		ModelPath:     "models/model.json",
		DatabasePath:  "students.db",
		GradeScale:    grading.ReportCardName,
		GradeFallback: string(grading.F),
		MaxBodyBytes:  1 << 20,

		MetricsNamespace:       "grader",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Scale resolves the configured grade scale.
func (c *Config) Scale() (grading.Scale, error) {
	if len(c.GradeThresholds) > 0 {
		name := c.GradeScale
		if name == "" || name == grading.ReportCardName || name == grading.LabelingName {
			name = "custom"
		}
		fallback := grading.Grade(strings.ToUpper(strings.TrimSpace(c.GradeFallback)))
		if fallback == "" {
			fallback = grading.F
		}
		return grading.FromMap(name, fallback, c.GradeThresholds)
	}
	return grading.Lookup(c.GradeScale)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	if c.MetricsRefreshInterval <= 0 {
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Scale(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
