// Package types holds the canonical category vocabulary shared by every stage
// of the report: the values that may appear in the Sex, Race, Ethnicity and
// Year columns of a finished report.
package types

import "strconv"

// Race categories.
const (
	RaceAmericanIndian = "American Indian / Alaska Native"
	RaceAsian          = "Asian"
	RaceBlack          = "Black or African American"
	RaceOther          = "Other"
	RacePacific        = "Native Hawaiian or Other Pacific Islander"
	RaceWhite          = "White"
	RaceMultiple       = "More Than One Race"
)

// Sex categories.
const (
	SexFemale = "Female"
	SexMale   = "Male"
)

// Ethnicity categories.
const (
	EthnicityHispanic    = "Hisp"
	EthnicityNonHispanic = "NonHisp"
)

// NotReported is the report's single label for a missing demographic value.
const NotReported = "Unknown or Not Reported"

// Unknown is the short placeholder some sources use instead of NotReported.
// Deduplication treats both as missing.
const Unknown = "Unknown"

// Sentinel period labels for submissions that cannot be placed in a period.
const (
	YearUnparseable = "Date unparseable"
	YearOutOfRange  = "Date out of range"
)

// BrowserUnknown marks a record with no browser-identifying answer.
const BrowserUnknown = "Unknown"

// IsPlaceholder reports whether v stands for "no value" in a demographic column.
func IsPlaceholder(v string) bool {
	return v == "" || v == Unknown || v == NotReported
}

// LessYear orders period labels: integer labels first, numerically, then
// every other label lexically. Equal integers fall back to the raw text so
// "07" and "7" still order consistently.
func LessYear(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
