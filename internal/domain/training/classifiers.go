package training

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	logisticIterations   = 1000
	logisticLearningRate = 0.1
)

// LogisticRegression is an L2-regularized logistic model fitted by batch
// gradient descent. C is the inverse regularization strength.
type LogisticRegression struct {
	Iterations   int
	LearningRate float64
	C            float64

	weights *mat.VecDense
	bias    float64
}

// NewLogisticRegression returns a model with 1000 iterations, a 0.1
// learning rate and C = 1.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{Iterations: logisticIterations, LearningRate: logisticLearningRate, C: 1}
}

// Name implements Classifier.
func (m *LogisticRegression) Name() string { return "Logistic Regression" }

// Fit implements Classifier.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	p, err := checkLabeled(x, y)
	if err != nil {
		return err
	}
	n := len(x)
	a := mat.NewDense(n, p, nil)
	target := mat.NewVecDense(n, nil)
	for i, row := range x {
		a.SetRow(i, row)
		target.SetVec(i, float64(y[i]))
	}

	w := mat.NewVecDense(p, nil)
	resid := mat.NewVecDense(n, nil)
	var z, grad mat.VecDense
	bias := 0.0
	inv := 1 / float64(n)
	penalty := 1 / (m.C * float64(n))

	for it := 0; it < m.Iterations; it++ {
		z.MulVec(a, w)
		for i := 0; i < n; i++ {
			resid.SetVec(i, sigmoid(z.AtVec(i)+bias)-target.AtVec(i))
		}
		grad.MulVec(a.T(), resid)
		grad.ScaleVec(inv, &grad)
		grad.AddScaledVec(&grad, penalty, w)

		w.AddScaledVec(w, -m.LearningRate, &grad)
		bias -= m.LearningRate * mat.Sum(resid) * inv
	}

	m.weights, m.bias = w, bias
	return nil
}

// Probability returns the estimated probability of LabelPass.
func (m *LogisticRegression) Probability(x []float64) (float64, error) {
	if m.weights == nil {
		return 0, ErrNotFitted
	}
	if len(x) != m.weights.Len() {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", ErrLengthMismatch, m.weights.Len(), len(x))
	}
	return sigmoid(mat.Dot(m.weights, mat.NewVecDense(len(x), x)) + m.bias), nil
}

// Predict implements Classifier.
func (m *LogisticRegression) Predict(x []float64) (int, error) {
	prob, err := m.Probability(x)
	if err != nil {
		return 0, err
	}
	if prob >= 0.5 {
		return LabelPass, nil
	}
	return LabelFail, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	label     int
	leaf      bool
}

// DecisionTree is a binary CART classifier split on Gini impurity. Rows
// with feature <= threshold go left.
type DecisionTree struct {
	MaxDepth int

	nodes []treeNode
}

// NewDecisionTree returns a tree limited to maxDepth levels of splits.
func NewDecisionTree(maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &DecisionTree{MaxDepth: maxDepth}
}

// Name implements Classifier.
func (t *DecisionTree) Name() string { return "Decision Tree" }

// Fit implements Classifier.
func (t *DecisionTree) Fit(x [][]float64, y []int) error {
	if _, err := checkLabeled(x, y); err != nil {
		return err
	}
	t.nodes = t.nodes[:0]
	t.grow(x, y, 0)
	return nil
}

// Depth returns the number of split levels in the fitted tree.
func (t *DecisionTree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.depthAt(0)
}

func (t *DecisionTree) depthAt(i int) int {
	n := t.nodes[i]
	if n.leaf {
		return 0
	}
	l, r := t.depthAt(n.left), t.depthAt(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// grow appends the subtree for (x, y) and returns the index of its root.
func (t *DecisionTree) grow(x [][]float64, y []int, depth int) int {
	idx := len(t.nodes)
	label := majority(y)
	t.nodes = append(t.nodes, treeNode{feature: -1, left: -1, right: -1, label: label, leaf: true})

	if depth >= t.MaxDepth || gini(y) == 0 {
		return idx
	}
	feature, threshold, ok := bestSplit(x, y)
	if !ok {
		return idx
	}

	var lx, rx [][]float64
	var ly, ry []int
	for i, row := range x {
		if row[feature] <= threshold {
			lx, ly = append(lx, row), append(ly, y[i])
		} else {
			rx, ry = append(rx, row), append(ry, y[i])
		}
	}

	left := t.grow(lx, ly, depth+1)
	right := t.grow(rx, ry, depth+1)
	t.nodes[idx] = treeNode{feature: feature, threshold: threshold, left: left, right: right, label: label}
	return idx
}

// bestSplit tries the midpoints between consecutive distinct values of
// every feature and keeps the lowest weighted Gini impurity.
func bestSplit(x [][]float64, y []int) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	best := math.Inf(1)

	values := make([]float64, len(x))
	for j := range x[0] {
		for i, row := range x {
			values[i] = row[j]
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		for k := 1; k < len(sorted); k++ {
			if sorted[k] == sorted[k-1] {
				continue
			}
			threshold := (sorted[k-1] + sorted[k]) / 2
			var left, right [2]int
			for i, v := range values {
				if v <= threshold {
					left[y[i]]++
				} else {
					right[y[i]]++
				}
			}
			if impurity := weightedGini(left, right); impurity < best {
				best, bestFeature, bestThreshold = impurity, j, threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func weightedGini(left, right [2]int) float64 {
	nl := float64(left[0] + left[1])
	nr := float64(right[0] + right[1])
	total := nl + nr
	return nl/total*giniCounts(left) + nr/total*giniCounts(right)
}

func gini(y []int) float64 {
	var counts [2]int
	for _, l := range y {
		counts[l]++
	}
	return giniCounts(counts)
}

func giniCounts(c [2]int) float64 {
	n := float64(c[0] + c[1])
	if n == 0 {
		return 0
	}
	p0, p1 := float64(c[0])/n, float64(c[1])/n
	return 1 - p0*p0 - p1*p1
}

// majority returns the most frequent label; ties go to LabelFail.
func majority(y []int) int {
	var counts [2]int
	for _, l := range y {
		counts[l]++
	}
	if counts[LabelPass] > counts[LabelFail] {
		return LabelPass
	}
	return LabelFail
}

// Predict implements Classifier.
func (t *DecisionTree) Predict(x []float64) (int, error) {
	if len(t.nodes) == 0 {
		return 0, ErrNotFitted
	}
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.label, nil
		}
		if n.feature >= len(x) {
			return 0, fmt.Errorf("%w: tree splits on feature %d, got %d", ErrLengthMismatch, n.feature, len(x))
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// KNN is a k-nearest-neighbours classifier using Euclidean distance.
// Vote ties go to LabelFail.
type KNN struct {
	K int

	x [][]float64
	y []int
}

// NewKNN returns a classifier voting over k neighbours.
func NewKNN(k int) *KNN {
	if k < 1 {
		k = 1
	}
	return &KNN{K: k}
}

// Name implements Classifier.
func (m *KNN) Name() string { return fmt.Sprintf("k-NN (k=%d)", m.K) }

// Fit implements Classifier. The training rows are retained, not copied.
func (m *KNN) Fit(x [][]float64, y []int) error {
	if _, err := checkLabeled(x, y); err != nil {
		return err
	}
	m.x, m.y = x, y
	return nil
}

// Predict implements Classifier.
func (m *KNN) Predict(x []float64) (int, error) {
	if len(m.x) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != len(m.x[0]) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", ErrLengthMismatch, len(m.x[0]), len(x))
	}

	type neighbour struct {
		dist  float64
		label int
	}
	ns := make([]neighbour, len(m.x))
	for i, row := range m.x {
		ns[i] = neighbour{dist: floats.Distance(row, x, 2), label: m.y[i]}
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })

	k := m.K
	if k > len(ns) {
		k = len(ns)
	}
	var votes [2]int
	for _, n := range ns[:k] {
		votes[n.label]++
	}
	if votes[LabelPass] > votes[LabelFail] {
		return LabelPass, nil
	}
	return LabelFail, nil
}
