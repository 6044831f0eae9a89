package xlsx

import "errors"

var (
	// ErrMissingSheet is returned when a workbook has no sheet of the
	// requested name.
	ErrMissingSheet = errors.New("sheet not found")
)
