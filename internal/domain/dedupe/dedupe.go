// Package dedupe collapses a batch of report rows to one row per respondent
// wherever their answers can be reconciled.
package dedupe

import (
	"context"
	"sort"

	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/types"
	"github.com/okian/demoreport/pkg/logger"
)

// Deduper reconciles the rows of each worker.
type Deduper interface {
	// Dedupe returns the reconciled rows, ordered by worker, year and
	// ingest sequence. The input slice is not modified.
	Dedupe(ctx context.Context, rows []model.ReportRow) ([]model.ReportRow, Stats)
}

// Stats counts rows at each stage of one Dedupe call.
type Stats struct {
	Input      int
	FirstPass  int
	SecondPass int
	// Workers is the number of distinct workers in the output; Conflicted
	// is how many of them still have more than one row.
	Workers    int
	Conflicted int
}

// seenSet records which demographic keys a pass has already kept.
type seenSet map[[4]string]struct{}

// SeenAndRecord reports whether key was seen, recording it if not.
func (s seenSet) SeenAndRecord(key [4]string) bool {
	if _, ok := s[key]; ok {
		return true
	}
	s[key] = struct{}{}
	return false
}

type twoPassDeduper struct {
	log          logger.Logger
	placeholders map[string]bool
	fill         string
}

// New returns the two-pass Deduper.
//
// The first pass drops rows identical in worker, sex, race and ethnicity,
// keeping the earliest. The second pass reconciles workers that still have
// several rows: placeholders count as missing, every row takes the worker's
// smallest year, and a field with exactly one distinct answer is copied to
// all rows. Identical rows are collapsed again and remaining gaps are
// filled with "Unknown or Not Reported".
func New(opts ...Option) Deduper {
	d := &twoPassDeduper{
		log: logger.Nop(),
		placeholders: map[string]bool{
			types.Unknown:     true,
			types.NotReported: true,
		},
		fill: types.NotReported,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *twoPassDeduper) Dedupe(ctx context.Context, rows []model.ReportRow) ([]model.ReportRow, Stats) {
	st := Stats{Input: len(rows)}

	work := make([]model.ReportRow, len(rows))
	copy(work, rows)
	sortRows(work)

	work = collapse(work)
	st.FirstPass = len(work)

	for i := range work {
		work[i].Sex = d.blank(work[i].Sex)
		work[i].Race = d.blank(work[i].Race)
		work[i].Ethnicity = d.blank(work[i].Ethnicity)
		work[i].Year = d.blank(work[i].Year)
	}
	for _, group := range groups(work) {
		if len(group) > 1 {
			d.reconcile(work, group)
		}
	}

	work = collapse(work)
	for i := range work {
		work[i].Sex = d.fillEmpty(work[i].Sex)
		work[i].Race = d.fillEmpty(work[i].Race)
		work[i].Ethnicity = d.fillEmpty(work[i].Ethnicity)
		work[i].Year = d.fillEmpty(work[i].Year)
	}
	sortRows(work)
	st.SecondPass = len(work)

	for _, group := range groups(work) {
		st.Workers++
		if len(group) > 1 {
			st.Conflicted++
			d.log.Debug(ctx, "unresolved demographic conflict",
				logger.String("worker_id", work[group[0]].WorkerID),
				logger.Int("rows", len(group)))
		}
	}
	return work, st
}

// reconcile applies the second-pass rules to one worker's rows.
func (d *twoPassDeduper) reconcile(rows []model.ReportRow, idx []int) {
	year := ""
	for _, i := range idx {
		if y := rows[i].Year; y != "" && (year == "" || types.LessYear(y, year)) {
			year = y
		}
	}
	if year != "" {
		for _, i := range idx {
			rows[i].Year = year
		}
	}

	fields := []func(*model.ReportRow) *string{
		func(r *model.ReportRow) *string { return &r.Sex },
		func(r *model.ReportRow) *string { return &r.Race },
		func(r *model.ReportRow) *string { return &r.Ethnicity },
	}
	for _, field := range fields {
		v, ok := soleValue(rows, idx, field)
		if !ok {
			continue
		}
		for _, i := range idx {
			*field(&rows[i]) = v
		}
	}
}

// soleValue returns the field's only distinct non-empty value in the group.
func soleValue(rows []model.ReportRow, idx []int, field func(*model.ReportRow) *string) (string, bool) {
	val := ""
	for _, i := range idx {
		v := *field(&rows[i])
		switch {
		case v == "":
		case val == "":
			val = v
		case v != val:
			return "", false
		}
	}
	return val, val != ""
}

func (d *twoPassDeduper) blank(v string) string {
	if d.placeholders[v] {
		return ""
	}
	return v
}

func (d *twoPassDeduper) fillEmpty(v string) string {
	if v == "" {
		return d.fill
	}
	return v
}

// collapse keeps the first row of each distinct (worker, sex, race,
// ethnicity) key, preserving order.
func collapse(rows []model.ReportRow) []model.ReportRow {
	seen := make(seenSet, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if seen.SeenAndRecord(r.Demographics()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// groups returns the row indexes of each worker, in order of first
// appearance. Rows must be sorted by worker.
func groups(rows []model.ReportRow) [][]int {
	var out [][]int
	for i, r := range rows {
		if i == 0 || rows[i-1].WorkerID != r.WorkerID {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], i)
	}
	return out
}

func sortRows(rows []model.ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.WorkerID != b.WorkerID {
			return a.WorkerID < b.WorkerID
		}
		if a.Year != b.Year {
			return types.LessYear(a.Year, b.Year)
		}
		return a.Seq < b.Seq
	})
}
