package training_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/okian/grader/internal/domain/training"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConfusion(t *testing.T) {
	Convey("Given actual and predicted labels", t, func() {
		cm, err := training.Confusion([]int{0, 0, 1, 1, 1}, []int{0, 1, 1, 1, 0})
		So(err, ShouldBeNil)

		Convey("Then rows are actual and columns predicted", func() {
			So(cm, ShouldResemble, training.ConfusionMatrix{{1, 1}, {1, 2}})
			So(cm.Total(), ShouldEqual, 5)
			So(cm.Accuracy(), ShouldAlmostEqual, 0.6, 1e-12)
		})

		Convey("Then per-class precision, recall and F1 are derived", func() {
			want := training.ClassReport{Precision: 2.0 / 3, Recall: 2.0 / 3, F1: 2.0 / 3, Support: 3}
			if diff := cmp.Diff(want, cm.Report(training.LabelPass), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("pass report mismatch (-want +got):\n%s", diff)
			}
			So(cm.Report(training.LabelFail).Support, ShouldEqual, 2)
			So(cm.Report(training.LabelFail).F1, ShouldAlmostEqual, 0.5, 1e-12)
		})
	})

	Convey("Given a class that is never predicted", t, func() {
		cm, err := training.Confusion([]int{0, 1}, []int{0, 0})
		So(err, ShouldBeNil)
		So(cm.Report(training.LabelPass), ShouldResemble, training.ClassReport{Support: 1})
	})

	Convey("Given bad label input", t, func() {
		_, errLen := training.Confusion([]int{0}, []int{0, 1})
		_, errLabel := training.Confusion([]int{2}, []int{0})
		So(errors.Is(errLen, training.ErrLengthMismatch), ShouldBeTrue)
		So(errors.Is(errLabel, training.ErrInvalidLabel), ShouldBeTrue)
	})
}

func TestPassFailLabels(t *testing.T) {
	Convey("Given a text pass_fail column", t, func() {
		ds, err := training.ReadCSV(strings.NewReader("pass_fail\nPass\n fail \nPASS\n"))
		So(err, ShouldBeNil)

		labels, err := training.PassFailLabels(ds, training.ColumnPassFail)
		So(err, ShouldBeNil)
		So(labels, ShouldResemble, []int{training.LabelPass, training.LabelFail, training.LabelPass})
	})

	Convey("Given unknown labels", t, func() {
		text, _ := training.ReadCSV(strings.NewReader("pass_fail\nPass\nMaybe\n"))
		numeric, _ := training.ReadCSV(strings.NewReader("pass_fail\n1\n2\n"))

		_, errText := training.PassFailLabels(text, training.ColumnPassFail)
		_, errNumeric := training.PassFailLabels(numeric, training.ColumnPassFail)
		So(errors.Is(errText, training.ErrInvalidDataset), ShouldBeTrue)
		So(errors.Is(errNumeric, training.ErrInvalidDataset), ShouldBeTrue)
	})
}

func TestStratifiedSplit(t *testing.T) {
	Convey("Given four rows of each class", t, func() {
		x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
		y := []int{0, 0, 0, 0, 1, 1, 1, 1}

		s, err := training.StratifiedSplit(x, y, 0.25, 42)

		Convey("Then each class contributes one test row", func() {
			So(err, ShouldBeNil)
			So(s.Stratified, ShouldBeTrue)
			So(len(s.TestY), ShouldEqual, 2)
			So(s.TestY, ShouldContain, training.LabelFail)
			So(s.TestY, ShouldContain, training.LabelPass)
			So(len(s.TrainX), ShouldEqual, 6)
		})

		Convey("Then the same seed gives the same split", func() {
			again, _ := training.StratifiedSplit(x, y, 0.25, 42)
			So(again.TestX, ShouldResemble, s.TestX)
		})
	})

	Convey("Given a class with a single row", t, func() {
		s, err := training.StratifiedSplit([][]float64{{1}, {2}, {3}, {4}}, []int{0, 1, 1, 1}, 0.25, 42)

		Convey("Then it falls back to a plain split", func() {
			So(err, ShouldBeNil)
			So(s.Stratified, ShouldBeFalse)
			So(len(s.TestX), ShouldEqual, 1)
			So(len(s.TrainX), ShouldEqual, 3)
		})
	})

	Convey("Given an invalid test size", t, func() {
		_, err := training.StratifiedSplit([][]float64{{1}}, []int{0}, 1.5, 42)
		So(errors.Is(err, training.ErrInvalidTestSize), ShouldBeTrue)
	})
}

func TestClassifiers(t *testing.T) {
	Convey("Given a one-split separable dataset", t, func() {
		x := [][]float64{{0, 1}, {0, 2}, {0, 8}, {0, 9}}
		y := []int{0, 0, 1, 1}

		Convey("When fitting a decision tree", func() {
			tree := training.NewDecisionTree(5)
			So(tree.Fit(x, y), ShouldBeNil)

			Convey("Then a single split on the informative feature is learned", func() {
				So(tree.Depth(), ShouldEqual, 1)
				low, _ := tree.Predict([]float64{0, 4})
				high, _ := tree.Predict([]float64{0, 6})
				So(low, ShouldEqual, training.LabelFail)
				So(high, ShouldEqual, training.LabelPass)
			})
		})
	})

	Convey("Given two clusters on a line", t, func() {
		x := [][]float64{{-2}, {-1.5}, {-1}, {1}, {1.5}, {2}}
		y := []int{0, 0, 0, 1, 1, 1}

		Convey("When fitting k-NN with k=3", func() {
			knn := training.NewKNN(3)
			So(knn.Fit(x, y), ShouldBeNil)
			So(knn.Name(), ShouldEqual, "k-NN (k=3)")

			left, _ := knn.Predict([]float64{-1.2})
			right, _ := knn.Predict([]float64{1.2})
			So(left, ShouldEqual, training.LabelFail)
			So(right, ShouldEqual, training.LabelPass)

			_, err := knn.Predict([]float64{1, 2})
			So(errors.Is(err, training.ErrLengthMismatch), ShouldBeTrue)
		})

		Convey("When fitting logistic regression", func() {
			lr := training.NewLogisticRegression()
			So(lr.Fit(x, y), ShouldBeNil)

			left, _ := lr.Predict([]float64{-1.2})
			right, _ := lr.Predict([]float64{1.2})
			So(left, ShouldEqual, training.LabelFail)
			So(right, ShouldEqual, training.LabelPass)

			p, err := lr.Probability([]float64{2})
			So(err, ShouldBeNil)
			So(p, ShouldBeGreaterThan, 0.5)
		})
	})

	Convey("Given unfitted classifiers", t, func() {
		for _, c := range []training.Classifier{training.NewLogisticRegression(), training.NewDecisionTree(0), training.NewKNN(0)} {
			_, err := c.Predict([]float64{1})
			So(errors.Is(err, training.ErrNotFitted), ShouldBeTrue)
		}
	})

	Convey("Given labels outside 0 and 1", t, func() {
		err := training.NewDecisionTree(3).Fit([][]float64{{1}, {2}}, []int{0, 3})
		So(errors.Is(err, training.ErrInvalidLabel), ShouldBeTrue)
	})
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	Convey("Given synthetic data labeled at the pass mark", t, func() {
		ds := training.Synthesize(200, 42)

		out, err := training.Classify(ctx, ds, training.WithFeatures(training.SyntheticFeatures...))

		Convey("Then all three classifiers are compared, best first", func() {
			So(err, ShouldBeNil)
			So(out.Target, ShouldEqual, training.ColumnPassFail)
			So(out.Stratified, ShouldBeTrue)
			So(out.TrainRows+out.TestRows, ShouldEqual, 200)
			So(out.Neighbors, ShouldEqual, 5)
			So(len(out.Results), ShouldEqual, 3)

			names := make([]string, len(out.Results))
			for i, r := range out.Results {
				names[i] = r.Name
				So(r.Confusion.Total(), ShouldEqual, out.TestRows)
				So(r.Accuracy, ShouldBeGreaterThan, 0.75)
				if i > 0 {
					So(r.Accuracy, ShouldBeLessThanOrEqualTo, out.Results[i-1].Accuracy)
				}
			}
			So(names, ShouldContain, "Logistic Regression")
			So(names, ShouldContain, "Decision Tree")
			So(names, ShouldContain, "k-NN (k=5)")
		})
	})

	Convey("Given the students CSV with an unlabeled row", t, func() {
		ds, err := training.ReadCSV(strings.NewReader(studentsCSV))
		So(err, ShouldBeNil)

		out, err := training.Classify(ctx, ds)

		Convey("Then the unlabeled row is dropped and candidate features are used", func() {
			So(err, ShouldBeNil)
			So(out.Features, ShouldResemble, []string{"math", "science", "english", "hours_studied"})
			So(out.Stratified, ShouldBeFalse)
			So(out.TrainRows, ShouldEqual, 3)
			So(out.TestRows, ShouldEqual, 1)
			So(out.Neighbors, ShouldEqual, 3)
		})
	})

	Convey("Given a dataset without the target", t, func() {
		ds, _ := training.ReadCSV(strings.NewReader("a,b\n1,2\n"))
		_, err := training.Classify(ctx, ds)
		So(errors.Is(err, training.ErrMissingTarget), ShouldBeTrue)
	})

	Convey("Given a numeric target that is not 0/1", t, func() {
		ds, _ := training.ReadCSV(strings.NewReader(studentsCSV))
		_, err := training.Classify(ctx, ds, training.WithTarget("math"), training.WithFeatures("science"))
		So(errors.Is(err, training.ErrInvalidDataset), ShouldBeTrue)
	})
}
