// Package recode turns a finished demographic report into a REDCap import.
package recode

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/report"
	"github.com/okian/demoreport/internal/domain/types"
)

// Import codes of the REDCap demography form.
var (
	SexCodes = map[string]int{
		types.SexFemale:   0,
		types.SexMale:     1,
		types.NotReported: 2,
	}
	RaceCodes = map[string]int{
		types.RaceAmericanIndian: 0,
		types.RaceAsian:          1,
		types.RacePacific:        2,
		types.RaceBlack:          3,
		types.RaceWhite:          4,
		types.RaceMultiple:       5,
		types.NotReported:        6,
		types.RaceOther:          6,
	}
	EthnicityCodes = map[string]int{
		types.EthnicityHispanic:    0,
		types.EthnicityNonHispanic: 1,
		types.NotReported:          2,
	}
)

// Columns is the import file header, in the order REDCap expects.
var Columns = []string{
	"record_id",
	"mturk_workerid",
	"mturk_age",
	"mturk_sex",
	"mturk_race",
	"mturk_ethnicity",
	"mturk_demography_form_complete",
}

const (
	// RecordPrefix tags the sequential record ids.
	RecordPrefix = "mt"
	// FormComplete is the form status written for every record. REDCap
	// reads it as "Unverified".
	FormComplete = 1
)

// ImportRow is one record of the import file. Age is never imported.
type ImportRow struct {
	RecordID  string
	WorkerID  string
	Sex       int
	Race      int
	Ethnicity int
}

// Recode maps report rows to import rows. Record ids number rows from zero
// in report order. Any value without a code fails the whole import.
func Recode(rows []model.ReportRow) ([]ImportRow, error) {
	out := make([]ImportRow, 0, len(rows))
	for i, r := range rows {
		sex, err := code(SexCodes, "Sex", r.Sex, i)
		if err != nil {
			return nil, err
		}
		race, err := code(RaceCodes, "Race", r.Race, i)
		if err != nil {
			return nil, err
		}
		eth, err := code(EthnicityCodes, "Ethnicity", r.Ethnicity, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ImportRow{
			RecordID:  RecordPrefix + strconv.Itoa(i),
			WorkerID:  r.WorkerID,
			Sex:       sex,
			Race:      race,
			Ethnicity: eth,
		})
	}
	return out, nil
}

func code(codes map[string]int, column, value string, row int) (int, error) {
	c, ok := codes[value]
	if !ok {
		return 0, fmt.Errorf("%w: row %d %s %q", ErrUnknownValue, row+2, column, value)
	}
	return c, nil
}

// Table renders import rows under Columns.
func Table(rows []ImportRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, slices.Clone(Columns))
	for _, r := range rows {
		out = append(out, []string{
			r.RecordID,
			r.WorkerID,
			"",
			strconv.Itoa(r.Sex),
			strconv.Itoa(r.Race),
			strconv.Itoa(r.Ethnicity),
			strconv.Itoa(FormComplete),
		})
	}
	return out
}

// FromTable reads report rows from a sheet whose first row is the report
// header. Columns are found by name; extra columns are ignored.
func FromTable(table [][]string) ([]model.ReportRow, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMissingColumn)
	}

	pos := make(map[string]int, len(table[0]))
	for i, h := range table[0] {
		pos[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range report.Columns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		if i := pos[col]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	out := make([]model.ReportRow, 0, len(table)-1)
	for i, row := range table[1:] {
		out = append(out, model.ReportRow{
			WorkerID:  cell(row, "workerid"),
			Sex:       cell(row, "Sex"),
			Race:      cell(row, "Race"),
			Ethnicity: cell(row, "Ethnicity"),
			Year:      cell(row, "Year"),
			Seq:       i,
		})
	}
	return out, nil
}
