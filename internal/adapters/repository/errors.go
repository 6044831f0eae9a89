package repository

import "errors"

// Sentinel kinds for assignment store errors.
var (
	ErrOpen    = errors.New("open assignment store")
	ErrMigrate = errors.New("migrate assignment store")
	ErrSave    = errors.New("save assignments")
)
