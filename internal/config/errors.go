package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig   = errors.New("invalid config")
	ErrLoadConfig      = errors.New("load config failed")
	ErrMissingKeys     = errors.New("required manifest keys missing")
	ErrInvalidManifest = errors.New("invalid manifest")
)
