package schema

import "errors"

var (
	// ErrNoWorkerColumn is returned when a header carries neither worker id
	// column, so no naming convention can be detected.
	ErrNoWorkerColumn = errors.New("no worker id column")
)
