package training

import (
	"fmt"
	"math"

	"github.com/okian/grader/internal/domain/prediction"
	"gonum.org/v1/gonum/floats"
)

// Metrics are regression error measures on a held-out set.
type Metrics struct {
	MAE  float64 `json:"mae" yaml:"mae"`
	MSE  float64 `json:"mse" yaml:"mse"`
	RMSE float64 `json:"rmse" yaml:"rmse"`
}

// Map returns the metrics keyed by name.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{"mae": m.MAE, "mse": m.MSE, "rmse": m.RMSE}
}

// Score compares actual and predicted values.
func Score(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("%w: %d actual, %d predicted", ErrLengthMismatch, len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Metrics{}, ErrEmptyDataset
	}
	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)

	n := float64(len(diff))
	mae := floats.Norm(diff, 1) / n
	l2 := floats.Norm(diff, 2)
	mse := l2 * l2 / n
	return Metrics{MAE: mae, MSE: mse, RMSE: math.Sqrt(mse)}, nil
}

// Evaluate runs m over x (already scaled when a scaler is used) and scores
// the result against y.
func Evaluate(m prediction.Model, x [][]float64, y []float64) (Metrics, error) {
	preds := make([]float64, len(x))
	for i, row := range x {
		v, err := m.Predict(row)
		if err != nil {
			return Metrics{}, fmt.Errorf("row %d: %w", i, err)
		}
		preds[i] = v
	}
	return Score(y, preds)
}
