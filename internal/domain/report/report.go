// Package report shapes reconciled rows into the files a run produces.
package report

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/types"
)

// SheetName is the only sheet of the report workbook.
const SheetName = "Demographic Data"

// Columns is the report header.
var Columns = []string{"workerid", "Sex", "Race", "Ethnicity", "Year"}

// Assemble projects rows onto Columns, header first.
func Assemble(rows []model.ReportRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, slices.Clone(Columns))
	for _, r := range rows {
		out = append(out, []string{r.WorkerID, r.Sex, r.Race, r.Ethnicity, r.Year})
	}
	return out
}

// Filename is the report workbook name for a protocol and run date.
func Filename(protocol string, day time.Time) string {
	return fmt.Sprintf("%s_report-%s.xlsx", protocol, day.Format(time.DateOnly))
}

// RawFilename is the name of the undeduplicated assignment dump.
func RawFilename(protocol string, day time.Time) string {
	return fmt.Sprintf("%s_rawsubjects-%s.csv", protocol, day.Format(time.DateOnly))
}

// DatabaseFilename is the name of the SQLite assignment dump.
func DatabaseFilename(protocol string, day time.Time) string {
	return fmt.Sprintf("%s.%s.db", protocol, day.Format(time.DateOnly))
}

// RawColumns is the header of the raw dump.
var RawColumns = []string{
	"workerid", "hitid", "hittypeid", "assignmentid", "title", "list",
	"Experiment", "Experimenter",
	"assignmentaccepttime", "assignmentsubmittime", "creationtime",
	"Sex", "Race", "raceother", "Ethnicity", "Age", "Year", "Browser", "source",
}

// Raw renders every assignment for the raw dump, sorted by worker, year and
// ingest order. Nothing is deduplicated.
func Raw(recs []model.NormalizedRecord) [][]string {
	sorted := slices.Clone(recs)
	SortRecords(sorted)

	out := make([][]string, 0, len(sorted)+1)
	out = append(out, slices.Clone(RawColumns))
	for _, r := range sorted {
		out = append(out, []string{
			r.WorkerID, r.HitID, r.HitTypeID, r.AssignmentID, r.Title, r.List,
			r.Experiment, r.Experimenter,
			r.AcceptTime, r.SubmitTime, r.CreationTime,
			r.Sex, r.Race, r.RaceOther, r.Ethnicity, r.Age.String(), r.Year, r.Browser, r.Source,
		})
	}
	return out
}

// SortRecords orders records by worker, year and ingest sequence.
func SortRecords(recs []model.NormalizedRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.WorkerID != b.WorkerID {
			return a.WorkerID < b.WorkerID
		}
		if a.Year != b.Year {
			return types.LessYear(a.Year, b.Year)
		}
		return a.Seq < b.Seq
	})
}

// raceOrder is the row order of the summary table.
var raceOrder = []string{
	types.RaceAmericanIndian,
	types.RaceAsian,
	types.RaceBlack,
	types.RacePacific,
	types.RaceWhite,
	types.RaceOther,
	types.RaceMultiple,
	types.NotReported,
}

// Summary counts report rows by race and period.
type Summary struct {
	Races  []string
	Years  []string
	counts map[[2]string]int
	Total  int
}

// Count returns the number of rows for one race and period.
func (s Summary) Count(race, year string) int {
	return s.counts[[2]string{race, year}]
}

// RaceTotal returns the number of rows for one race across periods.
func (s Summary) RaceTotal(race string) int {
	n := 0
	for _, y := range s.Years {
		n += s.Count(race, y)
	}
	return n
}

// YearTotal returns the number of rows in one period.
func (s Summary) YearTotal(year string) int {
	n := 0
	for _, r := range s.Races {
		n += s.Count(r, year)
	}
	return n
}

// Summarize pivots rows into race by period counts. Periods follow labels,
// then any sentinel or unexpected labels in sorted order. Only races and
// periods with at least one row are listed.
func Summarize(rows []model.ReportRow, labels []string) Summary {
	s := Summary{counts: make(map[[2]string]int), Total: len(rows)}
	races := make(map[string]bool)
	years := make(map[string]bool)
	for _, r := range rows {
		s.counts[[2]string{r.Race, r.Year}]++
		races[r.Race] = true
		years[r.Year] = true
	}

	for _, r := range raceOrder {
		if races[r] {
			s.Races = append(s.Races, r)
			delete(races, r)
		}
	}
	s.Races = append(s.Races, sortedKeys(races)...)

	for _, y := range labels {
		if years[y] {
			s.Years = append(s.Years, y)
			delete(years, y)
		}
	}
	s.Years = append(s.Years, sortedKeys(years)...)
	return s
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return types.LessYear(out[i], out[j]) })
	return out
}

// Header returns the summary's table header: race, one column per period,
// then the total.
func (s Summary) Header() []string {
	out := make([]string, 0, len(s.Years)+2)
	out = append(out, "Race")
	out = append(out, s.Years...)
	return append(out, "Total")
}

// Rows returns the summary's table body.
func (s Summary) Rows() [][]string {
	out := make([][]string, 0, len(s.Races))
	for _, r := range s.Races {
		row := make([]string, 0, len(s.Years)+2)
		row = append(row, r)
		for _, y := range s.Years {
			row = append(row, strconv.Itoa(s.Count(r, y)))
		}
		out = append(out, append(row, strconv.Itoa(s.RaceTotal(r))))
	}
	return out
}

// Footer returns the per-period totals.
func (s Summary) Footer() []string {
	out := make([]string, 0, len(s.Years)+2)
	out = append(out, "Total")
	for _, y := range s.Years {
		out = append(out, strconv.Itoa(s.YearTotal(y)))
	}
	return append(out, strconv.Itoa(s.Total))
}
