package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default refresh interval", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.modelLoaded.Set(1)

			Convey("Then names carry the namespace, subsystem and prefix", func() {
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_prefix_model_loaded" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When invalid option values are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithCustomLabels(nil),
				WithRefreshInterval(-1*time.Second),
				WithPrometheusRegistry(registry),
				WithPrometheusRegistry(nil),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "grader")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
				So(manager.customLabels, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.registry, ShouldEqual, registry)
			})
		})
	})
}

func TestPredictionMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When predictions are recorded", func() {
			before := testutil.ToFloat64(globalManager.predictions.WithLabelValues("B"))
			RecordPrediction("B", 84.5)
			RecordPrediction("B", 81)

			Convey("Then the grade counter advances", func() {
				So(testutil.ToFloat64(globalManager.predictions.WithLabelValues("B")), ShouldEqual, before+2)
			})
		})

		Convey("When validation failures are recorded", func() {
			before := testutil.ToFloat64(globalManager.validationFailures.WithLabelValues("hours_studied", "required"))
			RecordValidationFailure("hours_studied", "required")

			Convey("Then they are counted per field and reason", func() {
				So(testutil.ToFloat64(globalManager.validationFailures.WithLabelValues("hours_studied", "required")), ShouldEqual, before+1)
			})
		})

		Convey("When readiness changes", func() {
			UpdateModelLoaded(true, 3)
			So(testutil.ToFloat64(globalManager.modelLoaded), ShouldEqual, 1)
			So(testutil.ToFloat64(globalManager.modelFeatures), ShouldEqual, 3)

			UpdateModelLoaded(false, 0)
			So(testutil.ToFloat64(globalManager.modelLoaded), ShouldEqual, 0)
		})

		Convey("When counting errors and latency", func() {
			So(func() {
				RecordComputationError()
				RecordNotReady()
				RecordPredictionLatency(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestStudentAndHTTPMetrics(t *testing.T) {
	Convey("Given student and HTTP metrics", t, func() {
		Convey("When updating the student gauge", func() {
			UpdateStudentsTotal(12)

			Convey("Then it holds the latest value", func() {
				So(testutil.ToFloat64(globalManager.studentsTotal), ShouldEqual, 12)
			})
		})

		Convey("When recording operations", func() {
			before := testutil.ToFloat64(globalManager.studentOperations.WithLabelValues("create", "duplicate"))
			RecordStudentOperation("create", "duplicate")
			So(testutil.ToFloat64(globalManager.studentOperations.WithLabelValues("create", "duplicate")), ShouldEqual, before+1)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordRepositoryQueryLatency("list", 1.5)
				RecordHTTPRequest("/predict", "POST", "200")
				RecordHTTPRequestDuration("/predict", "POST", "200", 2.0)
				RecordErrorByComponent("repository", "not_found")
				RecordErrorByEndpoint("/students", "GET", "not_found")
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024 * 100)
				UpdateSystemGoroutineCount(100)
				RecordSystemGCPauseTime(1.0)
			}, ShouldNotPanic)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordPrediction("A", 95)

		Convey("Then it gathers grader metrics only", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
			for _, f := range families {
				So(f.GetName(), ShouldStartWith, "grader_")
			}
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given configured naming", t, func() {
		previous := GetRegistry()
		err := Configure(
			WithNamespace("school"),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithRefreshInterval(2*time.Second),
		)
		So(err, ShouldBeNil)

		Convey("Then recordings land on a fresh registry under the new names", func() {
			So(GetRegistry(), ShouldNotPointTo, previous)
			So(RefreshInterval(), ShouldEqual, 2*time.Second)

			UpdateStudentsTotal(4)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			var found bool
			for _, f := range families {
				if f.GetName() == "school_students_total" {
					found = true
					So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 4)
				}
			}
			So(found, ShouldBeTrue)
		})
	})

	Convey("Given a reserved constant label", t, func() {
		current := GetRegistry()
		err := Configure(WithCustomLabels(map[string]string{"__env": "test"}))

		Convey("Then an error is returned and the current manager is kept", func() {
			So(errors.Is(err, ErrInvalidOptions), ShouldBeTrue)
			So(GetRegistry(), ShouldPointTo, current)
		})
	})
}
