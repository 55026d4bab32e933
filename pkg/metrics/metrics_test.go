package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then recorded values are gathered under the configured names", func() {
				manager.RecordUpload("picker", UploadAccepted)
				manager.RecordUpload("drop", UploadRejectedSize)
				manager.RecordAnalysis(AnalysisSuccess, 42)

				families, err := registry.Gather()
				So(err, ShouldBeNil)

				uploads := findFamily(families, "test_unit_uploads_total")
				So(uploads, ShouldNotBeNil)
				So(len(uploads.GetMetric()), ShouldEqual, 2)

				latency := findFamily(families, "test_unit_analysis_latency_milliseconds")
				So(latency, ShouldNotBeNil)
				So(latency.GetMetric()[0].GetHistogram().GetSampleCount(), ShouldEqual, uint64(1))
			})

			Convey("Then a negative latency counts the outcome without an observation", func() {
				manager.RecordAnalysis(AnalysisDispatch, -1)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(findFamily(families, "test_unit_analyses_total"), ShouldNotBeNil)
				latency := findFamily(families, "test_unit_analysis_latency_milliseconds")
				So(latency, ShouldNotBeNil)
				So(latency.GetMetric()[0].GetHistogram().GetSampleCount(), ShouldEqual, uint64(0))
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording through package functions", func() {
			So(func() {
				RecordUpload("picker", UploadIgnoredBusy)
				RecordAnalysis(AnalysisServerError, 120)
				RecordStaleCompletion()
				UpdateQueueDepth(3)
				UpdateQueueCapacity(16)
				WorkerBusy()
				WorkerIdle()
				UpdateActiveSessions(2)
				RecordHTTPRequest("upload", "POST", "303", 12)
				RecordErrorByComponent("predictor", "network_error")
			}, ShouldNotPanic)

			Convey("Then the custom registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(findFamily(families, "voxmood_frontend_stale_completions_total"), ShouldNotBeNil)
				So(findFamily(families, "voxmood_frontend_http_requests_total"), ShouldNotBeNil)
				So(findFamily(families, "voxmood_frontend_queue_capacity"), ShouldNotBeNil)
			})
		})
	})
}
