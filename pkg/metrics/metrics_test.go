package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should be created on its own registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(manager.Registry(), ShouldNotEqual, Default().Registry())
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("report"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"protocol": "crossling"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordRowsLoaded(1)

			Convey("Then names and labels should reflect the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, mf := range families {
					if mf.GetName() == "test_report_rows_loaded_total" {
						found = true
						So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "crossling")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a fresh manager", t, func() {
		m := NewManager()

		Convey("When recording ingest metrics", func() {
			m.RecordFileLoaded(true)
			m.RecordFileLoaded(false)
			m.RecordFileLoaded(false)
			m.RecordRowsLoaded(40)
			m.RecordRowsExcluded("missing_worker_id", 2)

			Convey("Then counters should accumulate", func() {
				So(testutil.ToFloat64(m.filesLoaded.WithLabelValues("yes")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.filesLoaded.WithLabelValues("no")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.rowsLoaded), ShouldEqual, 40)
				So(testutil.ToFloat64(m.rowsExcluded.WithLabelValues("missing_worker_id")), ShouldEqual, 2)
			})
		})

		Convey("When recording dedupe metrics", func() {
			m.SetDedupeRows(DedupeInput, 10)
			m.SetDedupeRows(DedupePass1, 7)
			m.SetDedupeRows(DedupePass2, 5)
			m.SetWorkers(4, 1)

			Convey("Then gauges should hold the last value", func() {
				So(testutil.ToFloat64(m.dedupeRows.WithLabelValues(DedupePass1)), ShouldEqual, 7)
				So(testutil.ToFloat64(m.uniqueWorkers), ShouldEqual, 4)
				So(testutil.ToFloat64(m.conflictedWorkers), ShouldEqual, 1)
			})
		})

		Convey("When recording issues and stages", func() {
			m.RecordIssue("date_out_of_range")
			m.RecordIssue("date_out_of_range")
			m.ObserveStage(StageLoad, 20*time.Millisecond)
			m.MarkRunComplete()

			Convey("Then they should be observable", func() {
				So(testutil.ToFloat64(m.recordIssues.WithLabelValues("date_out_of_range")), ShouldEqual, 2)
				So(testutil.CollectAndCount(m.stageDuration), ShouldEqual, 1)
				So(testutil.ToFloat64(m.lastRun), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the global manager writes its textfile", func() {
			Default().RecordRowsLoaded(3)
			path := filepath.Join(t.TempDir(), "global.prom")

			So(WriteTextfile(path), ShouldBeNil)
			So(Default().Registry(), ShouldEqual, customRegistry)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "demoreport_pipeline_rows_loaded_total")
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a manager with recorded values", t, func() {
		m := NewManager()
		m.RecordRowsLoaded(12)
		dir := t.TempDir()

		Convey("When writing to a textfile", func() {
			path := filepath.Join(dir, "demoreport.prom")
			err := m.WriteTextfile(path)

			Convey("Then the file should contain exposition text", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(data), "demoreport_pipeline_rows_loaded_total 12"), ShouldBeTrue)
			})
		})

		Convey("When the target directory does not exist", func() {
			err := m.WriteTextfile(filepath.Join(dir, "missing", "x.prom"))

			Convey("Then a wrapped sentinel error is returned", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrWriteTextfile), ShouldBeTrue)
			})
		})
	})
}
