package training

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/grader/internal/domain/prediction"
)

// Default training configuration constants.
const (
	defaultTarget   = ColumnAverage
	defaultTestSize = 0.2
	defaultSeed     = 42
)

// DefaultPreferredFeatures are used when no explicit features are given;
// the ones present in the dataset are selected in this order.
var DefaultPreferredFeatures = []string{"hours_studied", "attendance", "participation"}

// Option applies a configuration option to a training run.
type Option func(*trainer)

// WithTarget sets the column to predict.
func WithTarget(name string) Option {
	return func(t *trainer) {
		if name != "" {
			t.target = name
		}
	}
}

// WithFeatures fixes the feature columns and their order.
func WithFeatures(names ...string) Option {
	return func(t *trainer) {
		t.features = append([]string(nil), names...)
	}
}

// WithPreferredFeatures replaces DefaultPreferredFeatures.
func WithPreferredFeatures(names ...string) Option {
	return func(t *trainer) {
		if len(names) > 0 {
			t.preferred = append([]string(nil), names...)
		}
	}
}

// WithTestSize sets the held-out fraction.
func WithTestSize(f float64) Option {
	return func(t *trainer) {
		t.testSize = f
	}
}

// WithSeed sets the shuffle seed.
func WithSeed(seed int64) Option {
	return func(t *trainer) {
		t.seed = seed
	}
}

// WithoutScaler fits the model on raw feature values.
func WithoutScaler() Option {
	return func(t *trainer) {
		t.scale = false
	}
}

// WithMaxDepth limits the decision tree fitted by Classify.
func WithMaxDepth(depth int) Option {
	return func(t *trainer) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

type trainer struct {
	target    string
	features  []string
	preferred []string
	testSize  float64
	seed      int64
	scale     bool
	maxDepth  int
}

// Outcome is a fitted model and its held-out evaluation.
type Outcome struct {
	Target    string
	Features  []string
	Model     *prediction.LinearModel
	Scaler    *prediction.StandardScaler // nil when trained WithoutScaler
	Metrics   Metrics
	TrainRows int
	TestRows  int
}

// Train fits a linear model on ds. Rows with a missing target or feature
// are skipped; call Dataset.Clean first to impute instead. When the split
// leaves no test rows, metrics are computed on the training rows.
func Train(ctx context.Context, ds *Dataset, opts ...Option) (Outcome, error) {
	t := &trainer{
		target:    defaultTarget,
		preferred: DefaultPreferredFeatures,
		testSize:  defaultTestSize,
		seed:      defaultSeed,
		scale:     true,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	if ds == nil || ds.Rows() == 0 {
		return Outcome{}, ErrEmptyDataset
	}
	target, ok := ds.numeric[t.target]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrMissingTarget, t.target)
	}

	features, err := t.selectFeatures(ds)
	if err != nil {
		return Outcome{}, err
	}

	x, y := designMatrix(ds, features, target)
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	split, err := TrainTestSplit(x, y, t.testSize, t.seed)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Target:    t.target,
		Features:  features,
		TrainRows: len(split.TrainX),
		TestRows:  len(split.TestX),
	}

	trainX, testX := split.TrainX, split.TestX
	if t.scale {
		out.Scaler, err = FitStandardScaler(trainX)
		if err != nil {
			return Outcome{}, fmt.Errorf("fit scaler: %w", err)
		}
		if trainX, err = TransformAll(out.Scaler, trainX); err != nil {
			return Outcome{}, err
		}
		if testX, err = TransformAll(out.Scaler, testX); err != nil {
			return Outcome{}, err
		}
	}

	out.Model, err = FitLinear(trainX, split.TrainY)
	if err != nil {
		return Outcome{}, fmt.Errorf("fit model: %w", err)
	}

	evalX, evalY := testX, split.TestY
	if len(evalX) == 0 {
		evalX, evalY = trainX, split.TrainY
	}
	out.Metrics, err = Evaluate(out.Model, evalX, evalY)
	if err != nil {
		return Outcome{}, fmt.Errorf("evaluate: %w", err)
	}
	return out, nil
}

func (t *trainer) selectFeatures(ds *Dataset) ([]string, error) {
	if len(t.features) > 0 {
		for _, f := range t.features {
			if !ds.IsNumeric(f) {
				return nil, fmt.Errorf("%w: %q is not a numeric column", ErrNoFeatures, f)
			}
			if f == t.target {
				return nil, fmt.Errorf("%w: target %q used as a feature", ErrNoFeatures, f)
			}
		}
		return append([]string(nil), t.features...), nil
	}
	return SelectFeatures(ds, t.preferred, t.target)
}

// SelectFeatures returns the preferred columns present in ds as numeric,
// excluding target, in preference order.
func SelectFeatures(ds *Dataset, preferred []string, target string) ([]string, error) {
	var out []string
	for _, f := range preferred {
		if f != target && ds.IsNumeric(f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: expected at least one of %v", ErrNoFeatures, preferred)
	}
	return out, nil
}

func designMatrix(ds *Dataset, features []string, target []float64) ([][]float64, []float64) {
	var x [][]float64
	var y []float64
rows:
	for i := 0; i < ds.Rows(); i++ {
		if math.IsNaN(target[i]) {
			continue
		}
		row := make([]float64, len(features))
		for j, f := range features {
			v := ds.numeric[f][i]
			if math.IsNaN(v) {
				continue rows
			}
			row[j] = v
		}
		x = append(x, row)
		y = append(y, target[i])
	}
	return x, y
}
