package tabular

import "errors"

var (
	// ErrEmptyFile is returned for a file without a header row.
	ErrEmptyFile = errors.New("file has no header row")
)
