package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/grader/internal/adapters/artifact"
	"github.com/okian/grader/internal/domain/training"
	"github.com/smartystreets/goconvey/convey"
)

const studentsCSV = `name,math,science,english,hours_studied,attendance
Rohan,85,90,88,15,92
Raman,78,82,80,12,85
Arnav,60,,65,8,70
Aryan,92,95,94,20,98
Rishi,55,50,52,,60
Ishan,70,72,68,10,80
`

const passFailCSV = `name,math,science,english,hours_studied,attendance,pass_fail
Rohan,85,90,88,15,92,Pass
Raman,78,82,80,12,85,Pass
Arnav,60,,65,8,70,
Aryan,92,95,94,20,98,Pass
Rishi,55,50,52,,60,Fail
Ishan,70,72,68,10,80,Pass
Kabir,40,45,38,3,55,Fail
Vihaan,45,42,50,4,58,Fail
`

func TestRunSynthetic(t *testing.T) {
	convey.Convey("Given a synthetic training run", t, func() {
		dir := t.TempDir()
		out := filepath.Join(dir, "model.yaml")
		order := filepath.Join(dir, "feature_order.json")
		var stderr bytes.Buffer

		code := run(context.Background(), []string{"-synthetic", "200", "-out", out, "-features-out", order}, io.Discard, &stderr)

		convey.Convey("Then a loadable bundle and feature order are written", func() {
			convey.So(code, convey.ShouldEqual, exitOK)

			b, err := artifact.Load(out)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.Target, convey.ShouldEqual, training.ColumnScore)
			convey.So(b.Features, convey.ShouldResemble, training.SyntheticFeatures)
			convey.So(b.Scaler, convey.ShouldNotBeNil)
			convey.So(b.Metrics, convey.ShouldContainKey, "rmse")

			names, err := artifact.LoadFeatureOrder(order)
			convey.So(err, convey.ShouldBeNil)
			convey.So(names, convey.ShouldResemble, training.SyntheticFeatures)

			_, err = artifact.LoadPredictor(out, order)
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestRunCSV(t *testing.T) {
	convey.Convey("Given a students CSV with gaps", t, func() {
		dir := t.TempDir()
		csvPath := filepath.Join(dir, "students.csv")
		convey.So(os.WriteFile(csvPath, []byte(studentsCSV), 0o600), convey.ShouldBeNil)
		out := filepath.Join(dir, "model.json")
		cleaned := filepath.Join(dir, "clean", "students_clean.csv")
		var stderr bytes.Buffer

		code := run(context.Background(), []string{"-csv", csvPath, "-out", out, "-clean-out", cleaned, "-no-scaler"}, io.Discard, &stderr)

		convey.Convey("Then the average is predicted from the preferred features", func() {
			convey.So(code, convey.ShouldEqual, exitOK)

			b, err := artifact.Load(out)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.Target, convey.ShouldEqual, training.ColumnAverage)
			convey.So(b.Features, convey.ShouldResemble, []string{"hours_studied", "attendance"})
			convey.So(b.Scaler, convey.ShouldBeNil)
		})

		convey.Convey("Then the cleaned CSV has no gaps and derived columns", func() {
			raw, err := os.ReadFile(cleaned)
			convey.So(err, convey.ShouldBeNil)
			header := strings.SplitN(string(raw), "\n", 2)[0]
			convey.So(header, convey.ShouldContainSubstring, training.ColumnAverage)
			convey.So(header, convey.ShouldContainSubstring, training.ColumnGrade)
			convey.So(string(raw), convey.ShouldNotContainSubstring, ",,")
		})
	})
}

func TestRunUsage(t *testing.T) {
	convey.Convey("Given no data source", t, func() {
		var stderr bytes.Buffer
		code := run(context.Background(), []string{"-out", filepath.Join(t.TempDir(), "m.json")}, io.Discard, &stderr)
		convey.So(code, convey.ShouldEqual, exitUsage)
		convey.So(stderr.String(), convey.ShouldContainSubstring, "-csv or -synthetic")
	})

	convey.Convey("Given a missing CSV", t, func() {
		var stderr bytes.Buffer
		code := run(context.Background(), []string{"-csv", filepath.Join(t.TempDir(), "none.csv")}, io.Discard, &stderr)
		convey.So(code, convey.ShouldEqual, exitError)
	})
}

func TestRunClassify(t *testing.T) {
	convey.Convey("Given a labeled students CSV", t, func() {
		dir := t.TempDir()
		csvPath := filepath.Join(dir, "students.csv")
		convey.So(os.WriteFile(csvPath, []byte(passFailCSV), 0o600), convey.ShouldBeNil)
		out := filepath.Join(dir, "model.json")
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-csv", csvPath, "-classify", "-out", out}, &stdout, &stderr)

		convey.Convey("Then every classifier is reported and no bundle is written", func() {
			convey.So(code, convey.ShouldEqual, exitOK)
			report := stdout.String()
			convey.So(report, convey.ShouldContainSubstring, "Features: math, science, english, hours_studied, attendance")
			convey.So(report, convey.ShouldContainSubstring, "=== Logistic Regression ===")
			convey.So(report, convey.ShouldContainSubstring, "=== Decision Tree ===")
			convey.So(report, convey.ShouldContainSubstring, "=== k-NN (k=5) ===")
			convey.So(report, convey.ShouldContainSubstring, "ACTUAL/PREDICTED")
			convey.So(report, convey.ShouldContainSubstring, "=== Model Comparison (Accuracy) ===")

			_, err := os.Stat(out)
			convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given synthetic data", t, func() {
		var stdout bytes.Buffer
		code := run(context.Background(), []string{"-synthetic", "120", "-classify"}, &stdout, io.Discard)

		convey.So(code, convey.ShouldEqual, exitOK)
		convey.So(stdout.String(), convey.ShouldContainSubstring, "Features: hours_studied, attendance_percent, assignments_submitted")
		convey.So(stdout.String(), convey.ShouldContainSubstring, "Train size: ")
	})

	convey.Convey("Given a CSV without outcomes", t, func() {
		csvPath := filepath.Join(t.TempDir(), "students.csv")
		convey.So(os.WriteFile(csvPath, []byte(studentsCSV), 0o600), convey.ShouldBeNil)

		code := run(context.Background(), []string{"-csv", csvPath, "-classify"}, io.Discard, io.Discard)
		convey.So(code, convey.ShouldEqual, exitError)
	})
}
