package grading_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/grader/internal/domain/grading"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReportCardScale(t *testing.T) {
	Convey("Given the report card scale", t, func() {
		s := grading.ReportCard

		Convey("Then boundary scores map to the higher grade", func() {
			So(s.Grade(90), ShouldEqual, grading.A)
			So(s.Grade(80), ShouldEqual, grading.B)
			So(s.Grade(70), ShouldEqual, grading.C)
			So(s.Grade(60), ShouldEqual, grading.D)
		})

		Convey("Then scores just below a boundary map to the lower grade", func() {
			So(s.Grade(89.99), ShouldEqual, grading.B)
			So(s.Grade(79.99), ShouldEqual, grading.C)
			So(s.Grade(69.99), ShouldEqual, grading.D)
			So(s.Grade(59.99), ShouldEqual, grading.F)
		})

		Convey("Then extreme scores are handled", func() {
			So(s.Grade(150), ShouldEqual, grading.A)
			So(s.Grade(-10), ShouldEqual, grading.F)
			So(s.Grade(0), ShouldEqual, grading.F)
		})

		Convey("Then the name is stable", func() {
			So(s.Name(), ShouldEqual, grading.ReportCardName)
			So(s.Fallback(), ShouldEqual, grading.F)
		})
	})
}

func TestLabelingScale(t *testing.T) {
	Convey("Given the labeling scale", t, func() {
		s := grading.Labeling

		Convey("Then its boundaries differ from the report card", func() {
			So(s.Grade(85), ShouldEqual, grading.A)
			So(grading.ReportCard.Grade(85), ShouldEqual, grading.B)
			So(s.Grade(70), ShouldEqual, grading.B)
			So(s.Grade(55), ShouldEqual, grading.C)
			So(s.Grade(40), ShouldEqual, grading.D)
			So(s.Grade(39.9), ShouldEqual, grading.F)
		})
	})
}

func TestNewScale(t *testing.T) {
	Convey("Given custom thresholds", t, func() {
		Convey("When they are unordered", func() {
			s, err := grading.NewScale("pass_fail", "FAIL",
				grading.Threshold{Min: 50, Grade: "PASS"},
			)

			Convey("Then the scale is built", func() {
				So(err, ShouldBeNil)
				So(s.Grade(50), ShouldEqual, grading.Grade("PASS"))
				So(s.Grade(49), ShouldEqual, grading.Grade("FAIL"))
			})
		})

		Convey("When thresholds are given lowest first", func() {
			s, err := grading.NewScale("asc", grading.F,
				grading.Threshold{Min: 60, Grade: grading.D},
				grading.Threshold{Min: 90, Grade: grading.A},
			)
			So(err, ShouldBeNil)

			Convey("Then they are sorted highest first", func() {
				ts := s.Thresholds()
				So(ts[0].Min, ShouldEqual, 90)
				So(ts[1].Min, ShouldEqual, 60)
				So(s.Grade(95), ShouldEqual, grading.A)
				So(s.Grade(65), ShouldEqual, grading.D)
			})
		})

		Convey("When thresholds are invalid", func() {
			_, errDup := grading.NewScale("dup", grading.F,
				grading.Threshold{Min: 60, Grade: grading.D},
				grading.Threshold{Min: 60, Grade: grading.C},
			)
			_, errNaN := grading.NewScale("nan", grading.F, grading.Threshold{Min: math.NaN(), Grade: grading.A})
			_, errEmpty := grading.NewScale("empty", grading.F)
			_, errName := grading.NewScale(" ", grading.F, grading.Threshold{Min: 1, Grade: grading.A})

			Convey("Then construction fails", func() {
				So(errors.Is(errDup, grading.ErrInvalidScale), ShouldBeTrue)
				So(errors.Is(errNaN, grading.ErrInvalidScale), ShouldBeTrue)
				So(errors.Is(errEmpty, grading.ErrInvalidScale), ShouldBeTrue)
				So(errors.Is(errName, grading.ErrInvalidScale), ShouldBeTrue)
			})
		})

		Convey("When built from a config map", func() {
			s, err := grading.FromMap("custom", grading.F, map[string]float64{"a": 85, "B": 70})

			Convey("Then grade keys are upper-cased", func() {
				So(err, ShouldBeNil)
				So(s.Grade(86), ShouldEqual, grading.A)
				So(s.Grade(71), ShouldEqual, grading.B)
				So(s.Grade(10), ShouldEqual, grading.F)
			})
		})
	})
}

func TestLookup(t *testing.T) {
	Convey("Given scale names", t, func() {
		Convey("Then built-ins resolve", func() {
			s, err := grading.Lookup("labeling")
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, grading.LabelingName)

			s, err = grading.Lookup("")
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, grading.ReportCardName)
		})

		Convey("Then unknown names fail", func() {
			_, err := grading.Lookup("curve")
			So(errors.Is(err, grading.ErrUnknownScale), ShouldBeTrue)
		})
	})
}
