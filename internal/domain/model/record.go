// Package model contains the records passed between pipeline stages.
package model

import (
	"strconv"
	"time"

	"github.com/okian/demoreport/internal/domain/types"
)

// RawRecord is one data row of a results file keyed by its raw column name.
// Cells that are empty are absent from the map.
type RawRecord map[string]string

// Indicator is a position in the boolean race indicator vector.
type Indicator int

// Indicator positions, in the fixed order the survey emits them.
const (
	IndicatorAmericanIndian Indicator = iota
	IndicatorAsian
	IndicatorBlack
	IndicatorOther
	IndicatorPacific
	IndicatorUnknown
	IndicatorWhite

	NumIndicators = 7
)

// IndicatorKeys are the column suffixes of the indicator vector, by position.
var IndicatorKeys = [NumIndicators]string{"amerind", "asian", "black", "other", "pacif", "unknown", "white"}

// Category returns the report category of a single set indicator.
func (i Indicator) Category() string {
	switch i {
	case IndicatorAmericanIndian:
		return types.RaceAmericanIndian
	case IndicatorAsian:
		return types.RaceAsian
	case IndicatorBlack:
		return types.RaceBlack
	case IndicatorOther:
		return types.RaceOther
	case IndicatorPacific:
		return types.RacePacific
	case IndicatorWhite:
		return types.RaceWhite
	default:
		return types.NotReported
	}
}

// RaceAnswer is how a source recorded race. It is one of RaceSingle,
// RaceIndicators or RaceNotAnswered.
type RaceAnswer interface {
	raceAnswer()
}

// RaceSingle is a race answer from the single categorical column, e.g.
// "white;" or "asian;|white;".
type RaceSingle struct {
	Raw string
}

// RaceIndicators is a race answer spread over one boolean column per category.
type RaceIndicators [NumIndicators]bool

// RaceNotAnswered means the source carried no usable race answer.
type RaceNotAnswered struct{}

func (RaceSingle) raceAnswer()      {}
func (RaceIndicators) raceAnswer()  {}
func (RaceNotAnswered) raceAnswer() {}

// CanonicalRecord is one assignment after column reconciliation. Demographic
// answers are still raw; timestamps are the source text ("" when absent).
type CanonicalRecord struct {
	// Source is the results file the row came from, Row its 1-based data row.
	Source string
	Row    int
	// Seq is the row's position across the whole run, in manifest file order.
	Seq int

	HitID        string
	HitTypeID    string
	AssignmentID string
	WorkerID     string
	Title        string
	List         string

	Experiment   string
	Experimenter string

	AcceptTime   string
	SubmitTime   string
	CreationTime string

	SexRaw       string
	EthnicityRaw string
	AgeRaw       string
	RaceOther    string
	Race         RaceAnswer

	// Browsers holds the non-empty browser answers in alias order.
	Browsers []string
}

// Age is a normalized age answer: a whole number of years when the answer
// parses as a number, otherwise the original text.
type Age struct {
	Years   int
	Text    string
	Numeric bool
}

// String renders the age the way it appears in text outputs.
func (a Age) String() string {
	if a.Numeric {
		return strconv.Itoa(a.Years)
	}
	return a.Text
}

// Value returns an int, a string, or nil for an absent answer.
func (a Age) Value() any {
	switch {
	case a.Numeric:
		return a.Years
	case a.Text == "":
		return nil
	default:
		return a.Text
	}
}

// NormalizedRecord is a CanonicalRecord with its derived report fields.
type NormalizedRecord struct {
	CanonicalRecord

	Sex       string
	Ethnicity string
	Race      string
	Year      string
	Age       Age
	Browser   string

	// Submitted is the parsed submit time; zero when it could not be parsed.
	Submitted time.Time
}

// Report projects the record onto the five report columns.
func (r NormalizedRecord) Report() ReportRow {
	return ReportRow{
		WorkerID:  r.WorkerID,
		Sex:       r.Sex,
		Race:      r.Race,
		Ethnicity: r.Ethnicity,
		Year:      r.Year,
		Seq:       r.Seq,
	}
}

// ReportRow is the unit of deduplication and of the final report.
type ReportRow struct {
	WorkerID  string
	Sex       string
	Race      string
	Ethnicity string
	Year      string

	// Seq orders otherwise identical rows; the lowest wins.
	Seq int
}

// Demographics returns the fields that make two rows of one worker identical.
func (r ReportRow) Demographics() [4]string {
	return [4]string{r.WorkerID, r.Sex, r.Race, r.Ethnicity}
}
