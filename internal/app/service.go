// Package service runs the demographic report pipeline: it loads the results
// files a manifest lists, normalizes and deduplicates their assignments and
// writes the report files.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/demoreport/internal/adapters/loader"
	"github.com/okian/demoreport/internal/adapters/repository"
	"github.com/okian/demoreport/internal/adapters/tabular"
	"github.com/okian/demoreport/internal/adapters/xlsx"
	"github.com/okian/demoreport/internal/config"
	"github.com/okian/demoreport/internal/domain/dedupe"
	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/normalize"
	"github.com/okian/demoreport/internal/domain/period"
	"github.com/okian/demoreport/internal/domain/recode"
	"github.com/okian/demoreport/internal/domain/report"
	"github.com/okian/demoreport/internal/domain/schema"
	"github.com/okian/demoreport/pkg/logger"
	"github.com/okian/demoreport/pkg/metrics"
)

// Reasons a row is left out of a run.
const (
	ExcludedNoWorkerColumn = "no_worker_column"
	ExcludedNoWorkerID     = "missing_worker_id"
)

// Service runs report and recode jobs. It holds no state between runs.
type Service struct {
	logger  logger.Logger
	metrics *metrics.Manager
	deduper dedupe.Deduper
	readers int

	loc   *time.Location
	now   func() time.Time
	runID string

	outputDir   string
	rawSubjects bool
	sqlite      bool
}

// New constructs a Service. Without options it logs to the global logger,
// reports to the global metrics manager and writes only the report workbook
// into the working directory.
func New(opts ...Option) *Service {
	s := &Service{
		metrics:   metrics.Default(),
		now:       time.Now,
		runID:     uuid.NewString(),
		outputDir: ".",
	}
	if loc, err := time.LoadLocation(period.DefaultZone); err == nil {
		s.loc = loc
	} else {
		s.loc = time.UTC
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	if s.deduper == nil {
		s.deduper = dedupe.New(dedupe.WithLogger(s.logger.Named("dedupe")))
	}
	s.logger = s.logger.With(logger.String("run_id", s.runID))
	return s
}

// RunID returns the identifier of this service's runs.
func (s *Service) RunID() string {
	return s.runID
}

// Batch is every assignment loaded for one run.
type Batch struct {
	Records []model.CanonicalRecord

	Files             int
	FilesWithoutDemos int
	RowsRead          int
	RowsExcluded      int
}

// Result is the outcome of one report run.
type Result struct {
	Records []model.NormalizedRecord
	Rows    []model.ReportRow
	Stats   dedupe.Stats
	Summary report.Summary

	ReportPath   string
	RawPath      string
	DatabasePath string
}

// Run loads, normalizes, deduplicates and writes one report.
func (s *Service) Run(ctx context.Context, m *config.Manifest) (*Result, error) {
	batch, err := s.Load(ctx, m)
	if err != nil {
		return nil, err
	}

	table := PeriodTable(m)
	recs := s.Normalize(ctx, batch.Records, table)

	start := time.Now()
	rows := make([]model.ReportRow, len(recs))
	for i, r := range recs {
		rows[i] = r.Report()
	}
	out, st := s.deduper.Dedupe(ctx, rows)
	s.metrics.ObserveStage(metrics.StageDedupe, time.Since(start))
	s.metrics.SetDedupeRows(metrics.DedupeInput, st.Input)
	s.metrics.SetDedupeRows(metrics.DedupePass1, st.FirstPass)
	s.metrics.SetDedupeRows(metrics.DedupePass2, st.SecondPass)
	s.metrics.SetWorkers(st.Workers, st.Conflicted)

	s.logger.Info(ctx, "starting deduplication", logger.Int("rows", st.Input))
	s.logger.Info(ctx, "after first pass removing duplicates", logger.Int("rows", st.FirstPass))
	s.logger.Info(ctx, "after second pass removing duplicates", logger.Int("rows", st.SecondPass))
	s.logger.Info(ctx, "unique workers",
		logger.Int("workers", st.Workers),
		logger.Int("rows", st.SecondPass),
		logger.Int("conflicted_workers", st.Conflicted))

	res := &Result{
		Records: recs,
		Rows:    out,
		Stats:   st,
		Summary: report.Summarize(out, table.Labels()),
	}
	if err := s.Write(ctx, m.Protocol, res); err != nil {
		return nil, err
	}
	s.metrics.MarkRunComplete()
	return res, nil
}

// Load reads every results file of the manifest. Files are read
// concurrently but bound in manifest order, so ingest sequence numbers
// follow the manifest. An unreadable file aborts the run; a file without a
// worker column is skipped and rows without a worker id are dropped, both
// with a warning.
func (s *Service) Load(ctx context.Context, m *config.Manifest) (*Batch, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStage(metrics.StageLoad, time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files := make([]loader.File, len(m.ResultsFiles))
	for i, rf := range m.ResultsFiles {
		files[i] = loader.File{Path: rf.File, Comma: rf.Comma()}
	}
	pool := loader.NewPool(loader.WithWorkers(s.readers), loader.WithLogger(s.logger.Named("loader")))
	tables, err := pool.ReadAll(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("load results file: %w", err)
	}

	b := &Batch{}
	seq := 0
	for fi, rf := range m.ResultsFiles {
		log := s.logger.With(logger.String("file", rf.File))
		t := tables[fi]
		b.Files++
		b.RowsRead += len(t.Rows)
		s.metrics.RecordRowsLoaded(len(t.Rows))

		binding, err := schema.Bind(t.Header)
		if err != nil {
			log.Warn(ctx, "skipping results file", logger.Int("rows", len(t.Rows)), logger.Error(err))
			b.RowsExcluded += len(t.Rows)
			s.metrics.RecordRowsExcluded(ExcludedNoWorkerColumn, len(t.Rows))
			continue
		}
		s.metrics.RecordFileLoaded(binding.HasDemographics)
		if binding.HasDemographics {
			log.Info(ctx, "file has demographic information",
				logger.String("convention", binding.Convention.String()),
				logger.Int("rows", len(t.Rows)))
		} else {
			b.FilesWithoutDemos++
			log.Warn(ctx, "file has no demographic information",
				logger.String("convention", binding.Convention.String()),
				logger.Int("rows", len(t.Rows)))
		}

		src := schema.Source{File: rf.File, Name: rf.Name, Experimenter: rf.Experimenter}
		for i, row := range t.Rows {
			rec := binding.Record(row, src)
			rec.Row = i + 1
			if rec.WorkerID == "" {
				log.Warn(ctx, "dropping row without worker id", logger.Int("row", rec.Row))
				b.RowsExcluded++
				s.metrics.RecordRowsExcluded(ExcludedNoWorkerID, 1)
				continue
			}
			rec.Seq = seq
			seq++
			b.Records = append(b.Records, rec)
		}
	}

	s.logger.Info(ctx, "results loaded",
		logger.Int("files", b.Files),
		logger.Int("files_without_demographics", b.FilesWithoutDemos),
		logger.Int("rows", b.RowsRead),
		logger.Int("excluded", b.RowsExcluded))
	return b, nil
}

// Normalize derives the report fields of every record and assigns its
// period. Problems are logged and counted; they never drop a record.
func (s *Service) Normalize(ctx context.Context, recs []model.CanonicalRecord, table period.Table) []model.NormalizedRecord {
	start := time.Now()
	defer func() { s.metrics.ObserveStage(metrics.StageNormalize, time.Since(start)) }()

	assigner := period.NewAssigner(table, period.WithLocation(s.loc))
	out := make([]model.NormalizedRecord, 0, len(recs))
	for _, rec := range recs {
		n, issues := normalize.Record(rec)
		for _, is := range issues {
			s.report(ctx, rec, is.Field, is.Raw, is.Err)
		}

		year, ts, err := assigner.Assign(rec.SubmitTime)
		if err != nil {
			s.report(ctx, rec, "submit_time", rec.SubmitTime, err)
		}
		n.Year = year
		n.Submitted = ts
		out = append(out, n)
	}
	return out
}

// issueKind names a record issue for metrics.
func issueKind(field string, err error) string {
	switch {
	case errors.Is(err, period.ErrDateUnparseable):
		return "date_unparseable"
	case errors.Is(err, period.ErrDateOutOfRange):
		return "date_out_of_range"
	case errors.Is(err, normalize.ErrUnresolvedRace):
		return "race_unresolved"
	case errors.Is(err, normalize.ErrFreeTextAge):
		return "age_free_text"
	default:
		return field + "_unrecognized"
	}
}

func (s *Service) report(ctx context.Context, rec model.CanonicalRecord, field, raw string, err error) {
	kind := issueKind(field, err)
	s.metrics.RecordIssue(kind)
	fields := []logger.Field{
		logger.String("file", rec.Source),
		logger.Int("row", rec.Row),
		logger.String("worker_id", rec.WorkerID),
		logger.String("field", field),
		logger.String("value", raw),
		logger.Error(err),
	}
	if kind == "age_free_text" {
		s.logger.Debug(ctx, "record issue", fields...)
		return
	}
	s.logger.Warn(ctx, "record issue", fields...)
}

// Write produces the report workbook and, when enabled, the raw and SQLite
// dumps. Paths are recorded on res.
func (s *Service) Write(ctx context.Context, protocol string, res *Result) error {
	start := time.Now()
	defer func() { s.metrics.ObserveStage(metrics.StageWrite, time.Since(start)) }()

	day := s.now().In(s.loc)

	if s.rawSubjects {
		res.RawPath = filepath.Join(s.outputDir, report.RawFilename(protocol, day))
		if err := tabular.WriteFile(res.RawPath, report.Raw(res.Records)); err != nil {
			return fmt.Errorf("write raw subjects: %w", err)
		}
		s.logger.Info(ctx, "wrote raw subjects", logger.String("path", res.RawPath), logger.Int("rows", len(res.Records)))
	}

	if s.sqlite {
		res.DatabasePath = filepath.Join(s.outputDir, report.DatabaseFilename(protocol, day))
		if err := s.saveAssignments(ctx, res.DatabasePath, res.Records); err != nil {
			return err
		}
		s.logger.Info(ctx, "wrote assignment database", logger.String("path", res.DatabasePath))
	}

	res.ReportPath = filepath.Join(s.outputDir, report.Filename(protocol, day))
	if err := xlsx.WriteFile(res.ReportPath, report.SheetName, report.Assemble(res.Rows)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	s.logger.Info(ctx, "wrote report", logger.String("path", res.ReportPath), logger.Int("rows", len(res.Rows)))
	return nil
}

func (s *Service) saveAssignments(ctx context.Context, path string, recs []model.NormalizedRecord) error {
	store, err := repository.Open(ctx, path, repository.WithClock(s.now))
	if err != nil {
		return fmt.Errorf("write assignment database: %w", err)
	}
	defer store.Close()
	if err := store.SaveAssignments(ctx, s.runID, recs); err != nil {
		return fmt.Errorf("write assignment database: %w", err)
	}
	return nil
}

// Recode reads a report workbook and writes its REDCap import file.
// It returns the number of records written.
func (s *Service) Recode(ctx context.Context, in, out string) (int, error) {
	rows, err := xlsx.ReadFile(in, report.SheetName)
	if err != nil {
		return 0, fmt.Errorf("read report: %w", err)
	}
	reportRows, err := recode.FromTable(rows)
	if err != nil {
		return 0, fmt.Errorf("read report %s: %w", in, err)
	}
	imports, err := recode.Recode(reportRows)
	if err != nil {
		return 0, fmt.Errorf("recode %s: %w", in, err)
	}
	if err := tabular.WriteFile(out, recode.Table(imports)); err != nil {
		return 0, fmt.Errorf("write import: %w", err)
	}
	s.metrics.RecordRecoded(len(imports))
	s.logger.Info(ctx, "wrote import file", logger.String("path", out), logger.Int("records", len(imports)))
	return len(imports), nil
}

// PeriodTable builds the run's period table from the manifest date breaks.
func PeriodTable(m *config.Manifest) period.Table {
	periods := make([]period.Period, 0, len(m.DateBreaks))
	for _, b := range m.DateBreaks {
		periods = append(periods, period.Period{Label: b.Label, Start: b.Start, End: b.End})
	}
	return period.NewTable(periods...)
}
