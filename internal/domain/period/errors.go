package period

import "errors"

var (
	// ErrDateUnparseable is returned for a submit time in no recognized format.
	ErrDateUnparseable = errors.New("submit time unparseable")
	// ErrDateOutOfRange is returned for a submit date outside every period.
	ErrDateOutOfRange = errors.New("submit date not in any period")
)
