package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/demoreport/internal/adapters/repository"
	"github.com/okian/demoreport/internal/adapters/tabular"
	"github.com/okian/demoreport/internal/adapters/xlsx"
	service "github.com/okian/demoreport/internal/app"
	"github.com/okian/demoreport/internal/config"
	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/recode"
	"github.com/okian/demoreport/internal/domain/report"
	"github.com/okian/demoreport/internal/domain/types"
	"github.com/okian/demoreport/internal/testresults"
	"github.com/okian/demoreport/pkg/logger"
	"github.com/okian/demoreport/pkg/metrics"
)

func init() {
	if err := logger.InitWithWriter(io.Discard, logger.FormatJSON); err != nil {
		panic(err)
	}
}

var runDay = time.Date(2022, 3, 4, 18, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// handFixture writes a legacy file, a current file and a file without a
// worker column, and returns their manifest.
func handFixture(t *testing.T, dir string) *config.Manifest {
	t.Helper()
	a := writeFile(t, dir, "a.results", ""+
		"hitid\tworkerid\tassignmentsubmittime\tAnswer.rsrb.sex\tAnswer.rsrb.ethnicity\tAnswer.rsrb.race\tAnswer.rsrb.age\n"+
		"H1\tW1\tTue Jun 15 10:00:00 PDT 2021\tUnknown\tNonHisp\twhite;\t34.7\n"+
		"H2\t\tTue Jun 15 10:00:00 PDT 2021\tMale\tNonHisp\twhite;\t20\n"+
		"H3\tW2\tgarbage\tFemale\tHisp\tasian;|white;\tthirty\n")
	b := writeFile(t, dir, "b.csv", ""+
		"HITId,WorkerId,SubmitTime,Answer.rsrb.sex,Answer.rsrb.ethnicity,Answer.rsrb.race.black,Answer.rsrb.race.white\n"+
		"H4,W1,2020-03-01T10:00:00-08:00,Male,NonHisp,false,false\n"+
		"H5,W3,2019-05-05T10:00:00-07:00,['Female'],['Hispanic or Latino'],true,true\n")
	c := writeFile(t, dir, "c.results", "hitid\tAnswer.comment\nH6\tnone\n")

	return &config.Manifest{
		Protocol: "crossling",
		ResultsFiles: []config.ResultsFile{
			{File: a, Name: "exp-a", Experimenter: "ilker"},
			{File: b, Delimiter: "comma", Name: "exp-b", Experimenter: "dave"},
			{File: c},
		},
		DateBreaks: []config.DateBreak{
			{Label: "2021", Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)},
			{Label: "2020", Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func counterValue(reg *prometheus.Registry, name, label string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestServiceRun(t *testing.T) {
	Convey("Given a manifest over hand written results files", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		m := handFixture(t, dir)
		mm := metrics.NewManager()
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithMetrics(mm),
			service.WithOutputDir(dir),
			service.WithClock(func() time.Time { return runDay }),
			service.WithRunID("run-1"),
		)
		So(svc.RunID(), ShouldEqual, "run-1")

		Convey("When the files are loaded", func() {
			b, err := svc.Load(ctx, m)

			Convey("Then rows without a worker are excluded", func() {
				So(err, ShouldBeNil)
				So(b.Files, ShouldEqual, 3)
				So(b.RowsRead, ShouldEqual, 6)
				So(b.RowsExcluded, ShouldEqual, 2)
				So(b.Records, ShouldHaveLength, 4)
				So(b.Records[0].Experiment, ShouldEqual, "exp-a")
				So(b.Records[2].Seq, ShouldEqual, 2)
				So(b.Records[2].Source, ShouldEqual, m.ResultsFiles[1].File)
			})
		})

		Convey("When the pipeline runs", func() {
			res, err := svc.Run(ctx, m)

			Convey("Then conflicting rows are reconciled per worker", func() {
				So(err, ShouldBeNil)
				So(res.Rows, ShouldHaveLength, 3)
				So(res.Rows[0], ShouldResemble, model.ReportRow{
					WorkerID: "W1", Sex: types.SexMale, Race: types.RaceWhite,
					Ethnicity: types.EthnicityNonHispanic, Year: "2020", Seq: 2,
				})
				So(res.Rows[1].Year, ShouldEqual, types.YearUnparseable)
				So(res.Rows[1].Race, ShouldEqual, types.RaceMultiple)
				So(res.Rows[2].Year, ShouldEqual, types.YearOutOfRange)
				So(res.Rows[2].Sex, ShouldEqual, types.SexFemale)
				So(res.Rows[2].Ethnicity, ShouldEqual, types.EthnicityHispanic)
				So(res.Stats.Input, ShouldEqual, 4)
				So(res.Stats.Workers, ShouldEqual, 3)
			})

			Convey("Then the workbook holds the report", func() {
				So(res.ReportPath, ShouldEqual, filepath.Join(dir, "crossling_report-2022-03-04.xlsx"))
				rows, err := xlsx.ReadFile(res.ReportPath, report.SheetName)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 4)
				So(rows[0], ShouldResemble, report.Columns)
				So(rows[1], ShouldResemble, []string{"W1", "Male", "White", "NonHisp", "2020"})
			})

			Convey("Then optional dumps are not written", func() {
				So(res.RawPath, ShouldBeEmpty)
				So(res.DatabasePath, ShouldBeEmpty)
			})

			Convey("Then record issues are counted by kind", func() {
				reg := mm.Registry()
				So(counterValue(reg, "demoreport_pipeline_record_issues_total", "date_unparseable"), ShouldEqual, 1)
				So(counterValue(reg, "demoreport_pipeline_record_issues_total", "date_out_of_range"), ShouldEqual, 1)
				So(counterValue(reg, "demoreport_pipeline_record_issues_total", "age_free_text"), ShouldEqual, 1)
				So(counterValue(reg, "demoreport_pipeline_rows_excluded_total", service.ExcludedNoWorkerID), ShouldEqual, 1)
			})

			Convey("And the report is recoded", func() {
				out := filepath.Join(dir, "crossling.csv")
				n, err := svc.Recode(ctx, res.ReportPath, out)

				Convey("Then every row gets an import record", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 3)
					table, err := tabular.ReadFile(out, ',')
					So(err, ShouldBeNil)
					So(table.Header, ShouldResemble, recode.Columns)
					So(table.Rows[0], ShouldResemble, []string{"mt0", "W1", "", "1", "4", "1", "1"})
					So(table.Rows[1], ShouldResemble, []string{"mt1", "W2", "", "0", "5", "0", "1"})
				})
			})
		})

		Convey("When a results file cannot be read", func() {
			m.ResultsFiles = append(m.ResultsFiles, config.ResultsFile{File: filepath.Join(dir, "missing.results")})
			_, err := svc.Run(ctx, m)

			Convey("Then the run aborts", func() {
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Load(cctx, m)

			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestServiceDumps(t *testing.T) {
	Convey("Given a service with both dumps enabled", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		m := handFixture(t, dir)
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithMetrics(metrics.NewManager()),
			service.WithOutputDir(dir),
			service.WithRawSubjects(true),
			service.WithSQLite(true),
			service.WithClock(func() time.Time { return runDay }),
		)

		Convey("When the pipeline runs", func() {
			res, err := svc.Run(ctx, m)
			So(err, ShouldBeNil)

			Convey("Then the raw dump keeps every assignment", func() {
				So(res.RawPath, ShouldEqual, filepath.Join(dir, "crossling_rawsubjects-2022-03-04.csv"))
				table, err := tabular.ReadFile(res.RawPath, ',')
				So(err, ShouldBeNil)
				So(table.Header, ShouldResemble, report.RawColumns)
				So(table.Rows, ShouldHaveLength, 4)
				So(table.Rows[0][0], ShouldEqual, "W1")
			})

			Convey("Then the database holds every assignment", func() {
				So(res.DatabasePath, ShouldEqual, filepath.Join(dir, "crossling.2022-03-04.db"))
				store, err := repository.Open(ctx, res.DatabasePath)
				So(err, ShouldBeNil)
				defer store.Close()
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})
	})
}

func TestServiceGeneratedFixture(t *testing.T) {
	Convey("Given a generated fixture", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		fx, err := testresults.Generate(ctx, testresults.DefaultConfig(dir))
		So(err, ShouldBeNil)
		m, err := config.LoadManifest(ctx, fx.ManifestPath)
		So(err, ShouldBeNil)

		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithMetrics(metrics.NewManager()),
			service.WithOutputDir(dir),
		)

		Convey("When the pipeline runs", func() {
			res, err := svc.Run(ctx, m)
			So(err, ShouldBeNil)

			Convey("Then rows only ever shrink", func() {
				So(len(res.Records), ShouldBeLessThanOrEqualTo, fx.Rows)
				So(len(res.Rows), ShouldBeLessThanOrEqualTo, len(res.Records))
				So(res.Stats.Workers, ShouldBeLessThanOrEqualTo, len(fx.Workers))
				So(res.Summary.Total, ShouldEqual, len(res.Rows))
			})

			Convey("Then every report row has a category in each column", func() {
				for _, r := range res.Rows {
					So(r.Sex, ShouldNotBeEmpty)
					So(r.Race, ShouldNotBeEmpty)
					So(r.Ethnicity, ShouldNotBeEmpty)
					So(r.Year, ShouldNotBeEmpty)
				}
			})

			Convey("Then the report always recodes", func() {
				n, err := svc.Recode(ctx, res.ReportPath, filepath.Join(dir, "import.csv"))
				So(err, ShouldBeNil)
				So(n, ShouldEqual, len(res.Rows))
			})
		})
	})
}

func TestPeriodTable(t *testing.T) {
	Convey("Given manifest date breaks out of order", t, func() {
		m := &config.Manifest{DateBreaks: []config.DateBreak{
			{Label: "b", Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)},
			{Label: "a", Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
		}}

		So(service.PeriodTable(m).Labels(), ShouldResemble, []string{"a", "b"})
	})
}
