// Package artifact persists and loads the fitted model, scaler and feature
// order produced by training.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/grader/internal/domain/prediction"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is written by Save and accepted by Load.
const CurrentVersion = 1

const filePermission = 0o600

// LinearSpec is a persisted linear model.
type LinearSpec struct {
	Intercept    float64   `json:"intercept" yaml:"intercept"`
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
}

// ScalerSpec is a persisted standard scaler.
type ScalerSpec struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

// Bundle is everything the prediction service needs from training.
type Bundle struct {
	Version   int                `json:"version" yaml:"version"`
	Target    string             `json:"target,omitempty" yaml:"target,omitempty"`
	Features  []string           `json:"features" yaml:"features"`
	Model     LinearSpec         `json:"model" yaml:"model"`
	Scaler    *ScalerSpec        `json:"scaler,omitempty" yaml:"scaler,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	TrainedAt time.Time          `json:"trained_at" yaml:"trained_at"`
}

// NewBundle captures a fitted model. scaler may be nil.
func NewBundle(target string, features []string, model *prediction.LinearModel, scaler *prediction.StandardScaler, metrics map[string]float64) Bundle {
	b := Bundle{
		Version:   CurrentVersion,
		Target:    target,
		Features:  append([]string(nil), features...),
		Model:     LinearSpec{Intercept: model.Intercept, Coefficients: append([]float64(nil), model.Coefficients...)},
		Metrics:   metrics,
		TrainedAt: time.Now().UTC(),
	}
	if scaler != nil {
		b.Scaler = &ScalerSpec{
			Mean:  append([]float64(nil), scaler.Mean...),
			Scale: append([]float64(nil), scaler.Scale...),
		}
	}
	return b
}

type codec int

const (
	codecJSON codec = iota + 1
	codecYAML
)

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return codecJSON, nil
	case ".yaml", ".yml":
		return codecYAML, nil
	default:
		return 0, fmt.Errorf("%w: unsupported extension %q", ErrFormat, filepath.Ext(path))
	}
}

// Save writes b to path as JSON or YAML depending on the extension. Both
// encodings keep the shortest exact representation of every float64.
func Save(path string, b Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	c, err := codecFor(path)
	if err != nil {
		return err
	}

	var payload []byte
	switch c {
	case codecJSON:
		payload, err = json.MarshalIndent(b, "", "  ")
	case codecYAML:
		payload, err = yaml.Marshal(b)
	}
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, payload, filePermission); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// Load reads and validates a bundle.
func Load(path string) (Bundle, error) {
	c, err := codecFor(path)
	if err != nil {
		return Bundle{}, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var b Bundle
	switch c {
	case codecJSON:
		err = json.Unmarshal(payload, &b)
	case codecYAML:
		err = yaml.Unmarshal(payload, &b)
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: decode %s: %w", ErrLoad, path, err)
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// LoadFeatureOrder reads a JSON array of feature names.
func LoadFeatureOrder(path string) ([]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrLoad, path, err)
	}
	if _, err := prediction.NewFeatureSpec(names...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	return names, nil
}

// SaveFeatureOrder writes names as an indented JSON array.
func SaveFeatureOrder(path string, names []string) error {
	payload, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	if err := os.WriteFile(path, payload, filePermission); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	return nil
}

// Validate checks the version, that every dimension matches the feature
// count and that all fitted parameters are finite.
func (b Bundle) Validate() error {
	if b.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBundle, b.Version)
	}
	if _, err := prediction.NewFeatureSpec(b.Features...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if len(b.Model.Coefficients) != len(b.Features) {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidBundle, len(b.Model.Coefficients), len(b.Features))
	}
	if err := prediction.NewLinearModel(b.Model.Intercept, b.Model.Coefficients).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if b.Scaler != nil {
		if len(b.Scaler.Mean) != len(b.Features) || len(b.Scaler.Scale) != len(b.Features) {
			return fmt.Errorf("%w: scaler has %d/%d entries for %d features",
				ErrInvalidBundle, len(b.Scaler.Mean), len(b.Scaler.Scale), len(b.Features))
		}
		if _, err := prediction.NewStandardScaler(b.Scaler.Mean, b.Scaler.Scale); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
	}
	return nil
}

// WithFeatures returns a copy of b using names as the feature order. The
// number of names must equal the number of coefficients.
func (b Bundle) WithFeatures(names []string) (Bundle, error) {
	if len(names) != len(b.Model.Coefficients) {
		return Bundle{}, fmt.Errorf("%w: %d feature names for %d coefficients", ErrInvalidBundle, len(names), len(b.Model.Coefficients))
	}
	b.Features = append([]string(nil), names...)
	return b, b.Validate()
}

// Predictor builds the immutable predictor described by b.
func (b Bundle) Predictor(opts ...prediction.Option) (*prediction.Predictor, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	spec, err := prediction.NewFeatureSpec(b.Features...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	model := prediction.NewLinearModel(b.Model.Intercept, b.Model.Coefficients)

	all := make([]prediction.Option, 0, len(opts)+1)
	if b.Scaler != nil {
		scaler, err := prediction.NewStandardScaler(b.Scaler.Mean, b.Scaler.Scale)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
		}
		all = append(all, prediction.WithScaler(scaler))
	}
	all = append(all, opts...)

	p, err := prediction.New(spec, model, all...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	return p, nil
}

// LoadPredictor loads the bundle at modelPath, optionally overriding its
// feature order with the JSON list at featuresPath.
func LoadPredictor(modelPath, featuresPath string, opts ...prediction.Option) (*prediction.Predictor, error) {
	b, err := Load(modelPath)
	if err != nil {
		return nil, err
	}
	if featuresPath != "" {
		names, err := LoadFeatureOrder(featuresPath)
		if err != nil {
			return nil, err
		}
		if b, err = b.WithFeatures(names); err != nil {
			return nil, err
		}
	}
	return b.Predictor(opts...)
}
