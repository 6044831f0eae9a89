package testresults

import "time"

// Config controls a generated fixture.
type Config struct {
	Dir      string // Directory the files are written to
	Protocol string // Protocol name in the manifest
	Workers  int    // Number of distinct workers
	Files    int    // Number of results files with demographics
	// MaxAssignments is the most assignments one worker makes per file.
	MaxAssignments int
	// LegacyFile adds one file from before the demographic questionnaire.
	LegacyFile bool
	Seed       uint64
	Start      time.Time // First possible submit time
	Years      int       // Number of calendar-year periods from Start
}

// Fixture describes what was written.
type Fixture struct {
	ManifestPath string
	Files        []string
	// Rows is the number of data rows over all files.
	Rows int
	// Workers lists every worker id that appears in any file.
	Workers []string
}

// DefaultConfig returns a small fixture configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		Protocol:       "synthetic",
		Workers:        50,
		Files:          4,
		MaxAssignments: 3,
		LegacyFile:     true,
		Seed:           1,
		Start:          time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		Years:          3,
	}
}
