package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/grader/internal/config"
	"github.com/okian/grader/internal/domain/grading"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.ModelPath, convey.ShouldEqual, "models/model.json")
			convey.So(cfg.DatabasePath, convey.ShouldEqual, "students.db")
			convey.So(cfg.GradeScale, convey.ShouldEqual, grading.ReportCardName)
			convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 1<<20)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Scale(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When no thresholds are configured", func() {
			scale, err := cfg.Scale()

			convey.Convey("Then the report card scale is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(scale.Name(), convey.ShouldEqual, grading.ReportCardName)
				convey.So(scale.Grade(90), convey.ShouldEqual, grading.A)
			})
		})

		convey.Convey("When the labeling scale is named", func() {
			cfg.GradeScale = "labeling"
			scale, err := cfg.Scale()

			convey.Convey("Then 85 is an A", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(scale.Grade(85), convey.ShouldEqual, grading.A)
			})
		})

		convey.Convey("When custom thresholds are configured", func() {
			cfg.GradeThresholds = map[string]float64{"a": 50, "B": 25}
			cfg.GradeFallback = "f"
			scale, err := cfg.Scale()

			convey.Convey("Then they replace the named scale", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(scale.Name(), convey.ShouldEqual, "custom")
				convey.So(scale.Grade(50), convey.ShouldEqual, grading.A)
				convey.So(scale.Grade(30), convey.ShouldEqual, grading.B)
				convey.So(scale.Grade(10), convey.ShouldEqual, grading.F)
			})
		})

		convey.Convey("When an unknown scale is named", func() {
			cfg.GradeScale = "curve"

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, grading.ErrUnknownScale), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the body limit is not positive", func() {
			cfg.MaxBodyBytes = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
