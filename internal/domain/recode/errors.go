package recode

import "errors"

var (
	// ErrUnknownValue is returned for a report value with no import code.
	ErrUnknownValue = errors.New("no import code for value")
	// ErrMissingColumn is returned when a report lacks a required column.
	ErrMissingColumn = errors.New("report column missing")
)
