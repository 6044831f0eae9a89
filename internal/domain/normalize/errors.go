package normalize

import "errors"

var (
	// ErrUnresolvedRace is returned for a single-column race answer that is
	// neither a known category token nor a multi-category answer.
	ErrUnresolvedRace = errors.New("unresolved race answer")
	// ErrUnrecognizedAnswer is returned for a sex or ethnicity answer outside
	// the known vocabulary.
	ErrUnrecognizedAnswer = errors.New("unrecognized answer")
	// ErrFreeTextAge marks an age answer that is not a number.
	ErrFreeTextAge = errors.New("age is not numeric")
)
