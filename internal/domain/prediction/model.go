package prediction

import (
	"fmt"
	"math"
)

// Model maps a feature vector, ordered per FeatureSpec, to a prediction.
// Implementations must be safe for concurrent use and must not retain x.
type Model interface {
	Predict(x []float64) (float64, error)
}

// Scaler transforms a feature vector before it reaches the model.
// Implementations must be safe for concurrent use and must not modify x.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(x []float64) (float64, error)

// Predict calls f(x).
func (f ModelFunc) Predict(x []float64) (float64, error) { return f(x) }

// LinearModel is an ordinary least squares fit: Intercept + Coefficients·x.
type LinearModel struct {
	Intercept    float64
	Coefficients []float64
}

// NewLinearModel copies coef so later changes by the caller are not observed.
func NewLinearModel(intercept float64, coef []float64) *LinearModel {
	c := make([]float64, len(coef))
	copy(c, coef)
	return &LinearModel{Intercept: intercept, Coefficients: c}
}

// Predict returns the linear combination of x.
func (m *LinearModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", ErrComputation, len(m.Coefficients), len(x))
	}
	y := m.Intercept
	for i, v := range x {
		y += m.Coefficients[i] * v
	}
	return y, nil
}

// Dim returns the number of coefficients.
func (m *LinearModel) Dim() int { return len(m.Coefficients) }

// Validate rejects a NaN or infinite intercept or coefficient.
func (m *LinearModel) Validate() error {
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return fmt.Errorf("%w: intercept = %v", ErrInvalidModel, m.Intercept)
	}
	for i, c := range m.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coefficient[%d] = %v", ErrInvalidModel, i, c)
		}
	}
	return nil
}

// StandardScaler standardizes each feature: (x - Mean) / Scale.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// NewStandardScaler validates and copies the fitted parameters. A zero
// scale is not allowed; fitting replaces zero variance with 1.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("%w: scaler mean has %d entries, scale has %d", ErrInvalidModel, len(mean), len(scale))
	}
	for i, s := range scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: scaler scale[%d] = %v", ErrInvalidModel, i, s)
		}
		if math.IsNaN(mean[i]) || math.IsInf(mean[i], 0) {
			return nil, fmt.Errorf("%w: scaler mean[%d] = %v", ErrInvalidModel, i, mean[i])
		}
	}
	m := make([]float64, len(mean))
	s := make([]float64, len(scale))
	copy(m, mean)
	copy(s, scale)
	return &StandardScaler{Mean: m, Scale: s}, nil
}

// Transform returns a new standardized vector.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", ErrComputation, len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// Dim returns the number of features the scaler was fitted on.
func (s *StandardScaler) Dim() int { return len(s.Mean) }
