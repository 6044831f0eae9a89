package normalize

import (
	"github.com/okian/demoreport/internal/domain/model"
)

// Issue is a recoverable problem found while normalizing one record.
type Issue struct {
	Field string
	Raw   string
	Err   error
}

// Record derives the report fields of a canonical record except Year, which
// depends on the run's periods. Issues are returned for the caller to report.
func Record(rec model.CanonicalRecord) (model.NormalizedRecord, []Issue) {
	out := model.NormalizedRecord{CanonicalRecord: rec}
	var issues []Issue

	var err error
	if out.Sex, err = Sex(rec.SexRaw); err != nil {
		issues = append(issues, Issue{Field: "sex", Raw: rec.SexRaw, Err: err})
	}
	if out.Ethnicity, err = Ethnicity(rec.EthnicityRaw); err != nil {
		issues = append(issues, Issue{Field: "ethnicity", Raw: rec.EthnicityRaw, Err: err})
	}
	if out.Race, err = Race(rec.Race); err != nil {
		raw := ""
		if s, ok := rec.Race.(model.RaceSingle); ok {
			raw = s.Raw
		}
		issues = append(issues, Issue{Field: "race", Raw: raw, Err: err})
	}
	if out.Age, err = Age(rec.AgeRaw); err != nil {
		issues = append(issues, Issue{Field: "age", Raw: rec.AgeRaw, Err: err})
	}
	out.Browser = Browser(rec.Browsers)
	return out, issues
}
