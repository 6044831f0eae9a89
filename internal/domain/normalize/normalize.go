// Package normalize reduces raw survey answers to report categories.
//
// Every function returns a usable value even when it also returns an error;
// errors describe what the caller should report, never a reason to drop the
// record.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/types"
)

// raceTokens are the single-category answers of the race column.
var raceTokens = map[string]string{
	"amerind;": types.RaceAmericanIndian,
	"asian;":   types.RaceAsian,
	"black;":   types.RaceBlack,
	"other;":   types.RaceOther,
	"pacif;":   types.RacePacific,
	"white;":   types.RaceWhite,
}

// raceDelimiter separates categories in a multi-category race answer.
const raceDelimiter = "|"

// Race resolves a race answer to one report category. An unresolvable
// single-column answer yields "" and ErrUnresolvedRace.
func Race(answer model.RaceAnswer) (string, error) {
	switch a := answer.(type) {
	case model.RaceSingle:
		raw := strings.TrimSpace(a.Raw)
		if category, ok := raceTokens[raw]; ok {
			return category, nil
		}
		if strings.Contains(raw, raceDelimiter) {
			return types.RaceMultiple, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnresolvedRace, a.Raw)
	case model.RaceIndicators:
		return indicatorRace(a), nil
	default:
		return types.NotReported, nil
	}
}

func indicatorRace(flags model.RaceIndicators) string {
	set := -1
	for i, on := range flags {
		if !on {
			continue
		}
		if set >= 0 {
			return types.RaceMultiple
		}
		set = i
	}
	if set < 0 {
		return types.NotReported
	}
	return model.Indicator(set).Category()
}

// Age truncates a numeric age answer to whole years. Anything else is kept
// as text and reported with ErrFreeTextAge; an empty answer is not an error.
func Age(raw string) (model.Age, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Age{}, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return model.Age{Text: raw}, fmt.Errorf("%w: %q", ErrFreeTextAge, raw)
	}
	return model.Age{Years: int(f), Numeric: true}, nil
}

// Browser joins the distinct browser answers with commas, in order.
func Browser(values []string) string {
	var kept []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return types.BrowserUnknown
	}
	return strings.Join(kept, ",")
}

var fold = cases.Fold()

// Answers that mean "not answered" in the sex and ethnicity columns.
var unanswered = map[string]bool{
	"":                        true,
	"n/a":                     true,
	"unknown;":                true,
	"unknown":                 true,
	"unknown or not reported": true,
}

var sexAnswers = map[string]string{
	"male":   types.SexMale,
	"female": types.SexFemale,
}

var ethnicityAnswers = map[string]string{
	"hisp":                   types.EthnicityHispanic,
	"hispanic or latino":     types.EthnicityHispanic,
	"nonhisp":                types.EthnicityNonHispanic,
	"not hispanic or latino": types.EthnicityNonHispanic,
}

// Sex maps a sex answer to its category. Missing and unrecognized answers
// yield ""; only the latter return an error.
func Sex(raw string) (string, error) {
	return lookup(raw, sexAnswers)
}

// Ethnicity maps an ethnicity answer to Hisp or NonHisp, like Sex.
func Ethnicity(raw string) (string, error) {
	return lookup(raw, ethnicityAnswers)
}

func lookup(raw string, answers map[string]string) (string, error) {
	key := fold.String(strings.TrimSpace(unwrapList(raw)))
	if unanswered[key] {
		return "", nil
	}
	if v, ok := answers[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedAnswer, raw)
}

// unwrapList strips the list rendering some form versions store a single
// choice in, e.g. ['Male'].
func unwrapList(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
		s = strings.Trim(s, `'"`)
	}
	return s
}
