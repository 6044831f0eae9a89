package loader

import "errors"

// Sentinel errors.
var (
	ErrStopped = errors.New("loader stopped")
)
