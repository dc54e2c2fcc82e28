package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Pass/fail labels.
const (
	LabelFail = 0
	LabelPass = 1

	labelMissing = -1
)

// ColumnPassFail holds "Pass"/"Fail" (or 1/0) outcomes.
const ColumnPassFail = "pass_fail"

const (
	defaultClassifyTestSize = 0.25
	defaultMaxDepth         = 5
	maxNeighbors            = 5
)

// DefaultClassifierFeatures are the candidate pass/fail predictors; the
// ones present in the dataset are used in this order.
var DefaultClassifierFeatures = []string{"math", "science", "english", "hours_studied", "attendance", "participation"}

// Classifier predicts a pass/fail label from a feature vector.
type Classifier interface {
	Name() string
	Fit(x [][]float64, y []int) error
	Predict(x []float64) (int, error)
}

// ClassifierResult is one classifier's held-out evaluation.
type ClassifierResult struct {
	Name      string
	Accuracy  float64
	Confusion ConfusionMatrix
}

// Classification compares the pass/fail classifiers on one split.
type Classification struct {
	Target     string
	Features   []string
	TrainRows  int
	TestRows   int
	Stratified bool
	Neighbors  int
	// Results are ordered by accuracy, best first.
	Results []ClassifierResult
}

// Classify fits logistic regression, a decision tree and k-NN on the
// pass/fail column of ds and evaluates each on a held-out split.
//
// Unlabeled rows are dropped and missing feature values take the column
// median. Logistic regression and k-NN see standardized features unless
// WithoutScaler is given; the tree always sees raw values. When the split
// leaves no test rows, the classifiers are scored on the training rows.
func Classify(ctx context.Context, ds *Dataset, opts ...Option) (Classification, error) {
	t := &trainer{
		target:    ColumnPassFail,
		preferred: DefaultClassifierFeatures,
		testSize:  defaultClassifyTestSize,
		seed:      defaultSeed,
		scale:     true,
		maxDepth:  defaultMaxDepth,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	if ds == nil || ds.Rows() == 0 {
		return Classification{}, ErrEmptyDataset
	}
	if !ds.Has(t.target) {
		return Classification{}, fmt.Errorf("%w: %q", ErrMissingTarget, t.target)
	}
	labels, err := PassFailLabels(ds, t.target)
	if err != nil {
		return Classification{}, err
	}
	features, err := t.selectFeatures(ds)
	if err != nil {
		return Classification{}, err
	}

	x, y, err := labeledMatrix(ds, features, labels)
	if err != nil {
		return Classification{}, err
	}
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}

	split, err := StratifiedSplit(x, y, t.testSize, t.seed)
	if err != nil {
		return Classification{}, err
	}

	out := Classification{
		Target:     t.target,
		Features:   features,
		TrainRows:  len(split.TrainX),
		TestRows:   len(split.TestX),
		Stratified: split.Stratified,
		Neighbors:  neighborCount(len(split.TrainX)),
	}

	evalX, evalY := split.TestX, split.TestY
	if len(evalX) == 0 {
		evalX, evalY = split.TrainX, split.TrainY
	}

	scaledTrain, scaledEval := split.TrainX, evalX
	if t.scale {
		scaler, err := FitStandardScaler(split.TrainX)
		if err != nil {
			return Classification{}, fmt.Errorf("fit scaler: %w", err)
		}
		if scaledTrain, err = TransformAll(scaler, split.TrainX); err != nil {
			return Classification{}, err
		}
		if scaledEval, err = TransformAll(scaler, evalX); err != nil {
			return Classification{}, err
		}
	}

	runs := []struct {
		model       Classifier
		train, eval [][]float64
	}{
		{NewLogisticRegression(), scaledTrain, scaledEval},
		{NewDecisionTree(t.maxDepth), split.TrainX, evalX},
		{NewKNN(out.Neighbors), scaledTrain, scaledEval},
	}
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return Classification{}, err
		}
		res, err := evaluateClassifier(r.model, r.train, split.TrainY, r.eval, evalY)
		if err != nil {
			return Classification{}, fmt.Errorf("%s: %w", r.model.Name(), err)
		}
		out.Results = append(out.Results, res)
	}

	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].Accuracy > out.Results[j].Accuracy
	})
	return out, nil
}

func evaluateClassifier(c Classifier, trainX [][]float64, trainY []int, x [][]float64, y []int) (ClassifierResult, error) {
	if err := c.Fit(trainX, trainY); err != nil {
		return ClassifierResult{}, fmt.Errorf("fit: %w", err)
	}
	preds := make([]int, len(x))
	for i, row := range x {
		p, err := c.Predict(row)
		if err != nil {
			return ClassifierResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		preds[i] = p
	}
	cm, err := Confusion(y, preds)
	if err != nil {
		return ClassifierResult{}, err
	}
	return ClassifierResult{Name: c.Name(), Accuracy: cm.Accuracy(), Confusion: cm}, nil
}

// neighborCount is min(5, n), made odd, and at least 1.
func neighborCount(n int) int {
	k := maxNeighbors
	if n < k {
		k = n
	}
	if k < 1 {
		return 1
	}
	if k%2 == 0 {
		k--
	}
	return k
}

// PassFailLabels reads column as pass/fail labels. Text cells match "pass"
// and "fail" case-insensitively and numeric cells must be 0 or 1. Empty
// cells are reported as -1.
func PassFailLabels(ds *Dataset, column string) ([]int, error) {
	out := make([]int, ds.Rows())
	if vals, ok := ds.Numeric(column); ok {
		for i, v := range vals {
			switch {
			case math.IsNaN(v):
				out[i] = labelMissing
			case v == LabelFail || v == LabelPass:
				out[i] = int(v)
			default:
				return nil, fmt.Errorf("%w: %s row %d: label %v is not 0 or 1", ErrInvalidDataset, column, i+1, v)
			}
		}
		return out, nil
	}

	vals, ok := ds.Text(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingTarget, column)
	}
	for i, v := range vals {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			out[i] = labelMissing
		case "pass":
			out[i] = LabelPass
		case "fail":
			out[i] = LabelFail
		default:
			return nil, fmt.Errorf("%w: %s row %d: label %q is not pass or fail", ErrInvalidDataset, column, i+1, v)
		}
	}
	return out, nil
}

// labeledMatrix keeps labeled rows and fills feature gaps with the median
// of the kept rows.
func labeledMatrix(ds *Dataset, features []string, labels []int) ([][]float64, []int, error) {
	var keep []int
	for i, l := range labels {
		if l != labelMissing {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, nil, fmt.Errorf("%w: no labeled rows", ErrEmptyDataset)
	}

	x := make([][]float64, len(keep))
	for i := range x {
		x[i] = make([]float64, len(features))
	}
	col := make([]float64, len(keep))
	for j, f := range features {
		src := ds.numeric[f]
		for i, r := range keep {
			col[i] = src[r]
		}
		fill, ok := median(col)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q has no values in labeled rows", ErrNoFeatures, f)
		}
		for i, v := range col {
			if math.IsNaN(v) {
				v = fill
			}
			x[i][j] = v
		}
	}

	y := make([]int, len(keep))
	for i, r := range keep {
		y[i] = labels[r]
	}
	return x, y, nil
}

// LabeledSplit is a train/test partition with class labels.
type LabeledSplit struct {
	TrainX     [][]float64
	TrainY     []int
	TestX      [][]float64
	TestY      []int
	Stratified bool
}

// StratifiedSplit holds out ceil(count*testSize) rows of each class,
// keeping at least one training row per class. When a class has fewer than
// two rows, or only one class is present, it falls back to TrainTestSplit.
func StratifiedSplit(x [][]float64, y []int, testSize float64, seed int64) (LabeledSplit, error) {
	if len(x) != len(y) {
		return LabeledSplit{}, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(x), len(y))
	}
	if testSize < 0 || testSize >= 1 || math.IsNaN(testSize) {
		return LabeledSplit{}, fmt.Errorf("%w: %v", ErrInvalidTestSize, testSize)
	}
	if len(x) == 0 {
		return LabeledSplit{}, ErrEmptyDataset
	}

	var byClass [2][]int
	for i, l := range y {
		if l != LabelFail && l != LabelPass {
			return LabeledSplit{}, fmt.Errorf("%w: label %d", ErrInvalidLabel, l)
		}
		byClass[l] = append(byClass[l], i)
	}

	if len(byClass[LabelFail]) < 2 || len(byClass[LabelPass]) < 2 {
		return plainLabeledSplit(x, y, testSize, seed)
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic split for reproducible training
	s := LabeledSplit{Stratified: true}
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Ceil(float64(len(idx)) * testSize))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		for i, r := range idx {
			if i < nTest {
				s.TestX = append(s.TestX, x[r])
				s.TestY = append(s.TestY, y[r])
				continue
			}
			s.TrainX = append(s.TrainX, x[r])
			s.TrainY = append(s.TrainY, y[r])
		}
	}
	return s, nil
}

func plainLabeledSplit(x [][]float64, y []int, testSize float64, seed int64) (LabeledSplit, error) {
	fy := make([]float64, len(y))
	for i, l := range y {
		fy[i] = float64(l)
	}
	split, err := TrainTestSplit(x, fy, testSize, seed)
	if err != nil {
		return LabeledSplit{}, err
	}
	return LabeledSplit{
		TrainX: split.TrainX,
		TrainY: toLabels(split.TrainY),
		TestX:  split.TestX,
		TestY:  toLabels(split.TestY),
	}, nil
}

func toLabels(v []float64) []int {
	out := make([]int, len(v))
	for i, f := range v {
		out[i] = int(f)
	}
	return out
}

// ConfusionMatrix counts outcomes by actual label (row) and predicted
// label (column), indexed by LabelFail and LabelPass.
type ConfusionMatrix [2][2]int

// Confusion tallies actual against predicted labels.
func Confusion(actual, predicted []int) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if len(actual) != len(predicted) {
		return cm, fmt.Errorf("%w: %d actual, %d predicted", ErrLengthMismatch, len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return cm, ErrEmptyDataset
	}
	for i, a := range actual {
		p := predicted[i]
		if !validLabel(a) || !validLabel(p) {
			return cm, fmt.Errorf("%w: row %d: %d/%d", ErrInvalidLabel, i, a, p)
		}
		cm[a][p]++
	}
	return cm, nil
}

// Total is the number of tallied rows.
func (c ConfusionMatrix) Total() int {
	return c[0][0] + c[0][1] + c[1][0] + c[1][1]
}

// Accuracy is the fraction of correct predictions.
func (c ConfusionMatrix) Accuracy() float64 {
	n := c.Total()
	if n == 0 {
		return 0
	}
	return float64(c[0][0]+c[1][1]) / float64(n)
}

// ClassReport holds per-class precision, recall and F1. Ratios with a zero
// denominator are 0.
type ClassReport struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarizes label as the positive class.
func (c ConfusionMatrix) Report(label int) ClassReport {
	other := 1 - label
	tp := float64(c[label][label])
	fp := float64(c[other][label])
	fn := float64(c[label][other])

	r := ClassReport{Support: c[label][0] + c[label][1]}
	if tp+fp > 0 {
		r.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		r.Recall = tp / (tp + fn)
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

func validLabel(l int) bool { return l == LabelFail || l == LabelPass }

func checkLabeled(x [][]float64, y []int) (int, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return 0, ErrEmptyDataset
	}
	p := len(x[0])
	for i, row := range x {
		if len(row) != p {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrLengthMismatch, i, len(row), p)
		}
		if !validLabel(y[i]) {
			return 0, fmt.Errorf("%w: row %d: %d", ErrInvalidLabel, i, y[i])
		}
	}
	return p, nil
}
