// Package config defines process configuration and the run manifest.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Loaders accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
)

const defaultReadWorkers = 4

// Config contains process configuration shared by every subcommand.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects auto, text or json diagnostics.
	LogFormat string `koanf:"log_format"`

	// OutputDir receives the report, raw dump and SQLite files.
	OutputDir string `koanf:"output_dir"`

	// Timezone is applied to submit timestamps that carry no zone.
	Timezone string `koanf:"timezone"`

	// RawSubjects enables the undeduplicated assignment dump.
	RawSubjects bool `koanf:"raw_subjects"`

	// SQLite enables the full-assignment SQLite dump.
	SQLite bool `koanf:"sqlite"`

	// MetricsTextfile, when set, receives run metrics in Prometheus text format.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Summary prints a race by period pivot table after the run.
	Summary bool `koanf:"summary"`

	// ReadWorkers bounds how many results files are read at once.
	ReadWorkers int `koanf:"read_workers"`
}

// New creates a Config with defaults. The context is reserved for loaders
// that need it and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "auto",
		OutputDir: ".",
		Timezone:  "America/Los_Angeles",
		Summary:   true,

		ReadWorkers: defaultReadWorkers,
	}
}
