// Package prediction turns raw request values into a rounded score and a
// letter grade using a loaded model.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/grader/internal/domain/grading"
)

const roundingFactor = 100

// Result is the outcome of a successful prediction.
type Result struct {
	Score  float64
	Grade  grading.Grade
	Inputs ValidatedInput
}

// Predictor owns immutable, loaded artifacts. All methods are safe for
// concurrent use; nothing is written after New returns.
type Predictor struct {
	spec   FeatureSpec
	model  Model
	scaler Scaler
	scale  grading.Scale
}

type dimensioned interface {
	Dim() int
}

type validated interface {
	Validate() error
}

// New builds a Predictor. When the model or scaler report their
// dimension, it must equal the number of features.
func New(spec FeatureSpec, model Model, opts ...Option) (*Predictor, error) {
	if spec.Len() == 0 {
		return nil, fmt.Errorf("%w: empty feature spec", ErrInvalidFeatureSpec)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidModel)
	}

	p := &Predictor{
		spec:  spec,
		model: model,
		scale: grading.ReportCard,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	if v, ok := model.(validated); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	if d, ok := model.(dimensioned); ok && d.Dim() != spec.Len() {
		return nil, fmt.Errorf("%w: model has %d coefficients for %d features", ErrInvalidModel, d.Dim(), spec.Len())
	}
	if d, ok := p.scaler.(dimensioned); ok && d.Dim() != spec.Len() {
		return nil, fmt.Errorf("%w: scaler has %d entries for %d features", ErrInvalidModel, d.Dim(), spec.Len())
	}
	return p, nil
}

// Predict validates raw, assembles the vector in feature order, applies
// the optional scaler and the model, rounds to two decimals and grades the
// rounded score. A nil Predictor reports ErrServiceNotReady.
func (p *Predictor) Predict(ctx context.Context, raw RawInput) (Result, error) {
	if p == nil {
		return Result{}, ErrServiceNotReady
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	in, err := Validate(p.spec, raw)
	if err != nil {
		return Result{}, err
	}

	x := p.spec.Vector(in)
	if p.scaler != nil {
		x, err = p.scaler.Transform(x)
		if err != nil {
			return Result{}, wrapComputation("transform", err)
		}
	}

	y, err := p.model.Predict(x)
	if err != nil {
		return Result{}, wrapComputation("predict", err)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return Result{}, fmt.Errorf("%w: predict: non-finite result %v", ErrComputation, y)
	}

	score := Round2(y)
	if math.IsInf(score, 0) {
		return Result{}, fmt.Errorf("%w: round: score %v out of range", ErrComputation, y)
	}
	return Result{
		Score:  score,
		Grade:  p.scale.Grade(score),
		Inputs: in,
	}, nil
}

// Features returns the expected feature names in order.
func (p *Predictor) Features() []string {
	if p == nil {
		return nil
	}
	return p.spec.Names()
}

// GradeScale returns the active grade table.
func (p *Predictor) GradeScale() grading.Scale {
	if p == nil {
		return grading.Scale{}
	}
	return p.scale
}

// Round2 rounds v to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*roundingFactor) / roundingFactor
}

// FormatScore prints v with the fewest digits that round-trip, keeping a
// decimal point: 42 prints as "42.0" and 73.47 as "73.47".
func FormatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

func wrapComputation(stage string, err error) error {
	if errors.Is(err, ErrComputation) {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrComputation, stage, err)
}
