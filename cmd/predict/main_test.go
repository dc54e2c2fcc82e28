package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/grader/internal/adapters/artifact"
	"github.com/okian/grader/internal/domain/prediction"
	"github.com/smartystreets/goconvey/convey"
)

func saveModel(t *testing.T, features []string, coef []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	b := artifact.NewBundle("score", features, prediction.NewLinearModel(0, coef), nil, nil)
	if err := artifact.Save(path, b); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	convey.Convey("Given a single-feature identity model", t, func() {
		ctx := context.Background()
		model := saveModel(t, []string{"hours_studied"}, []float64{1})

		exec := func(input string, args ...string) (int, string, string) {
			var stdout, stderr bytes.Buffer
			code := run(ctx, append([]string{"-model", model}, args...), strings.NewReader(input), &stdout, &stderr)
			return code, stdout.String(), stderr.String()
		}

		convey.Convey("When the input is 42", func() {
			code, out, _ := exec(`{"hours_studied": 42}`)

			convey.Convey("Then 42.0 is printed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(out, convey.ShouldEqual, "42.0\n")
			})
		})

		convey.Convey("When the grade is requested", func() {
			code, out, _ := exec(`{"hours_studied": "73.466"}`, "-grade", "-scale", "labeling")
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldEqual, "73.47 B\n")
		})

		convey.Convey("When the field is missing", func() {
			code, out, errOut := exec(`{"attendance": 90}`)
			convey.So(code, convey.ShouldEqual, exitError)
			convey.So(out, convey.ShouldBeEmpty)
			convey.So(errOut, convey.ShouldEqual, "missing required fields: [hours_studied]\n")
		})

		convey.Convey("When the field is not a number", func() {
			code, _, errOut := exec(`{"hours_studied": "many"}`)
			convey.So(code, convey.ShouldEqual, exitError)
			convey.So(errOut, convey.ShouldEqual, "invalid fields: [hours_studied]\n")
		})

		convey.Convey("When stdin is not an object", func() {
			code, _, errOut := exec(`[42]`)
			convey.So(code, convey.ShouldEqual, exitError)
			convey.So(errOut, convey.ShouldContainSubstring, "JSON object")
		})

		convey.Convey("When stdin carries data after the object", func() {
			code, out, errOut := exec(`{"hours_studied": 42} junk`)
			convey.So(code, convey.ShouldEqual, exitError)
			convey.So(out, convey.ShouldBeEmpty)
			convey.So(errOut, convey.ShouldContainSubstring, "JSON object")
		})

		convey.Convey("When the input ends with a newline", func() {
			code, out, _ := exec("{\"hours_studied\": 42}\n")
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldEqual, "42.0\n")
		})

		convey.Convey("When the scale is unknown", func() {
			code, _, _ := exec(`{"hours_studied": 42}`, "-scale", "curve")
			convey.So(code, convey.ShouldEqual, exitUsage)
		})
	})

	convey.Convey("Given a missing model file", t, func() {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"-model", filepath.Join(t.TempDir(), "none.json")},
			strings.NewReader(`{}`), &stdout, &stderr)

		convey.So(code, convey.ShouldEqual, exitError)
		convey.So(stderr.String(), convey.ShouldStartWith, "model not loaded")
	})
}
