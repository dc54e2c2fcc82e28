package training

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/grader/internal/domain/prediction"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Split holds a train/test partition of a design matrix.
type Split struct {
	TrainX [][]float64
	TrainY []float64
	TestX  [][]float64
	TestY  []float64
}

// TrainTestSplit shuffles rows with seed and holds out ceil(n*testSize)
// rows for testing, keeping at least one training row.
func TrainTestSplit(x [][]float64, y []float64, testSize float64, seed int64) (Split, error) {
	if len(x) != len(y) {
		return Split{}, fmt.Errorf("%w: %d rows, %d targets", ErrLengthMismatch, len(x), len(y))
	}
	if testSize < 0 || testSize >= 1 || math.IsNaN(testSize) {
		return Split{}, fmt.Errorf("%w: %v", ErrInvalidTestSize, testSize)
	}
	n := len(x)
	if n == 0 {
		return Split{}, ErrEmptyDataset
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		nTest = n - 1
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic split for reproducible training
	perm := rng.Perm(n)

	var s Split
	for i, idx := range perm {
		if i < nTest {
			s.TestX = append(s.TestX, x[idx])
			s.TestY = append(s.TestY, y[idx])
			continue
		}
		s.TrainX = append(s.TrainX, x[idx])
		s.TrainY = append(s.TrainY, y[idx])
	}
	return s, nil
}

// FitStandardScaler learns per-column mean and population standard
// deviation. Columns with zero variance get a scale of 1.
func FitStandardScaler(x [][]float64) (*prediction.StandardScaler, error) {
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	p := len(x[0])
	mean := make([]float64, p)
	scale := make([]float64, p)
	col := make([]float64, len(x))
	for j := 0; j < p; j++ {
		for i, row := range x {
			if len(row) != p {
				return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrLengthMismatch, i, len(row), p)
			}
			col[i] = row[j]
		}
		m, sd := stat.PopMeanStdDev(col, nil)
		mean[j] = m
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		scale[j] = sd
	}
	return prediction.NewStandardScaler(mean, scale)
}

// TransformAll applies s to every row.
func TransformAll(s prediction.Scaler, x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		t, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// FitLinear solves the ordinary least squares problem y ≈ b0 + X·b.
func FitLinear(x [][]float64, y []float64) (*prediction.LinearModel, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	p := len(x[0])
	n := len(x)
	if n < p+1 {
		return nil, fmt.Errorf("%w: %d rows for %d parameters", ErrInsufficientData, n, p+1)
	}

	a := mat.NewDense(n, p+1, nil)
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrLengthMismatch, i, len(row), p)
		}
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: condition number %.3g", ErrSingular, float64(cond))
		}
		return nil, fmt.Errorf("%w: %w", ErrSingular, err)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j + 1)
	}
	return prediction.NewLinearModel(beta.AtVec(0), coef), nil
}
