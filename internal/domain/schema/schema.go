// Package schema maps the columns of a results file onto canonical fields.
//
// Results files come in two naming conventions: the legacy command line
// export uses lowercase names (workerid, assignmentsubmittime) and the
// current requester UI uses CamelCase (WorkerId, SubmitTime). The convention
// is detected once per file from its header and selects the alias table used
// to bind columns; form answers (Answer.*) are named the same in both.
package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/demoreport/internal/domain/model"
)

// Convention is the column naming scheme of one results file.
type Convention int

const (
	ConventionUnknown Convention = iota
	ConventionLegacy
	ConventionCurrent
)

func (c Convention) String() string {
	switch c {
	case ConventionLegacy:
		return "legacy"
	case ConventionCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// columns returns the assignment alias table of the convention.
func (c Convention) columns() []alias {
	switch c {
	case ConventionLegacy:
		return legacyColumns
	case ConventionCurrent:
		return currentColumns
	default:
		return nil
	}
}

// Detect returns the naming convention of a header. CamelCase wins when a
// header somehow carries both worker columns.
func Detect(header []string) Convention {
	conv := ConventionUnknown
	for _, h := range header {
		switch strings.TrimSpace(h) {
		case "WorkerId":
			return ConventionCurrent
		case "workerid":
			conv = ConventionLegacy
		}
	}
	return conv
}

// Source identifies the manifest entry a file was listed under.
type Source struct {
	File         string
	Name         string
	Experimenter string
}

// Binding is the resolved column layout of one results file.
type Binding struct {
	Convention Convention
	// HasDemographics is false for files that predate the demographic
	// questionnaire; their rows carry no sex, race or ethnicity answers.
	HasDemographics bool

	index map[Field][]int
}

// Bind resolves a header against the alias table of its convention.
// Unrecognized columns are ignored. Fields without a column read as missing
// on every row.
func Bind(header []string) (*Binding, error) {
	conv := Detect(header)
	if conv == ConventionUnknown {
		return nil, fmt.Errorf("%w: expected WorkerId or workerid", ErrNoWorkerColumn)
	}

	positions := make(map[string][]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		positions[name] = append(positions[name], i)
	}

	b := &Binding{
		Convention: conv,
		index:      make(map[Field][]int),
	}
	for _, group := range [][]alias{conv.columns(), answerColumns} {
		for _, a := range group {
			if idx, ok := positions[a.column]; ok {
				b.index[a.field] = append(b.index[a.field], idx...)
			}
		}
	}
	_, b.HasDemographics = positions[demographicsColumn]
	return b, nil
}

// Has reports whether any column feeds the field.
func (b *Binding) Has(f Field) bool {
	return len(b.index[f]) > 0
}

// Fields returns the bound fields in canonical order.
func (b *Binding) Fields() []Field {
	out := make([]Field, 0, len(b.index))
	seen := make(map[Field]bool, len(b.index))
	for _, group := range [][]alias{b.Convention.columns(), answerColumns} {
		for _, a := range group {
			if b.Has(a.field) && !seen[a.field] {
				seen[a.field] = true
				out = append(out, a.field)
			}
		}
	}
	return out
}

// Record builds the canonical record for one data row. The experiment and
// experimenter fall back to the manifest entry when the row has none.
func (b *Binding) Record(row []string, src Source) model.CanonicalRecord {
	rec := model.CanonicalRecord{
		Source:       src.File,
		HitID:        b.value(row, FieldHitID),
		HitTypeID:    b.value(row, FieldHitTypeID),
		AssignmentID: b.value(row, FieldAssignmentID),
		WorkerID:     b.value(row, FieldWorkerID),
		Title:        b.value(row, FieldTitle),
		List:         b.value(row, FieldList),
		Experiment:   b.value(row, FieldExperiment),
		Experimenter: b.value(row, FieldExperimenter),
		AcceptTime:   b.value(row, FieldAcceptTime),
		SubmitTime:   b.value(row, FieldSubmitTime),
		CreationTime: b.value(row, FieldCreationTime),
		SexRaw:       b.value(row, FieldSex),
		EthnicityRaw: b.value(row, FieldEthnicity),
		AgeRaw:       b.value(row, FieldAge),
		RaceOther:    b.value(row, FieldRaceOther),
		Race:         b.race(row),
		Browsers:     b.values(row, FieldBrowser),
	}
	if rec.Experiment == "" {
		rec.Experiment = src.Name
	}
	if rec.Experimenter == "" {
		rec.Experimenter = src.Experimenter
	}
	return rec
}

// Raw returns the recognized cells of a row keyed by their header name.
func Raw(header, row []string) model.RawRecord {
	table := AliasTable()
	out := make(model.RawRecord)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, ok := table[name]; !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); !IsMissing(v) {
			out[name] = v
		}
	}
	return out
}

// unansweredRace is what the single race column holds when the respondent
// used the per-category checkboxes instead.
const unansweredRace = "unknown;"

// race picks the representation the row actually answered in: the single
// column when it carries an answer, else the indicator columns when the
// file has any, else nothing.
func (b *Binding) race(row []string) model.RaceAnswer {
	if v := b.value(row, FieldRace); v != "" && v != unansweredRace {
		return model.RaceSingle{Raw: v}
	}

	var (
		flags model.RaceIndicators
		bound bool
	)
	for i, f := range indicatorFields {
		if !b.Has(f) {
			continue
		}
		bound = true
		flags[i] = truthy(b.value(row, f))
	}
	if bound || b.Has(FieldRace) {
		return flags
	}
	return model.RaceNotAnswered{}
}

// value returns the first non-missing cell among the field's columns.
func (b *Binding) value(row []string, f Field) string {
	for _, i := range b.index[f] {
		if i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); !IsMissing(v) {
			return v
		}
	}
	return ""
}

// values returns every distinct non-missing cell among the field's columns.
func (b *Binding) values(row []string, f Field) []string {
	var out []string
	for _, i := range b.index[f] {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if IsMissing(v) || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// falseTokens are the indicator cells that mean "not checked".
var falseTokens = map[string]bool{
	"no":  true,
	"off": true,
}

// truthy reads an indicator cell. Any answer counts as checked unless it is
// a false boolean, a numeric zero or one of falseTokens; checkbox exports
// may write the category name instead of a boolean.
func truthy(v string) bool {
	if v == "" {
		return false
	}
	if ok, err := strconv.ParseBool(v); err == nil {
		return ok
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f != 0
	}
	return !falseTokens[strings.ToLower(v)]
}
