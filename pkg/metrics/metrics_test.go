package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom names", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its metrics are registered under those names", func() {
				So(manager, ShouldNotBeNil)
				manager.batchesLoaded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_batches_loaded_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a batch is loaded", func() {
			before := testutil.ToFloat64(globalManager.recordsLoaded)
			RecordBatchLoaded(3)

			Convey("Then the record counter grows by the batch size", func() {
				So(testutil.ToFloat64(globalManager.recordsLoaded)-before, ShouldEqual, 3)
			})
		})

		Convey("When recording edit events", func() {
			before := testutil.ToFloat64(globalManager.edits.WithLabelValues("committed"))
			err := RecordEdit("committed")

			Convey("Then known kinds are counted", func() {
				So(err, ShouldBeNil)
				So(testutil.ToFloat64(globalManager.edits.WithLabelValues("committed"))-before, ShouldEqual, 1)
			})

			Convey("And unknown kinds are refused", func() {
				So(RecordEdit("teleported"), ShouldEqual, ErrUnknownEditKind)
			})
		})

		Convey("When setting gauges", func() {
			UpdateSessionCount(4)
			UpdateQueueSize(2)

			Convey("Then the latest value wins", func() {
				So(testutil.ToFloat64(globalManager.sessions), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 2)
			})
		})

		Convey("When the registry is scraped", func() {
			RecordHTTPRequest("summary", "GET", "200")
			families, err := GetRegistry().Gather()

			Convey("Then every family carries the tally_review prefix", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "tally_review_"), ShouldBeTrue)
				}
			})
		})
	})
}
