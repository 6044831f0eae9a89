package service

import (
	"time"

	"github.com/okian/demoreport/internal/domain/dedupe"
	"github.com/okian/demoreport/pkg/logger"
	"github.com/okian/demoreport/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager runs report to.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDeduper replaces the two-pass deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithLocation sets the zone for submit times that carry none.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock sets the time source used for output file dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunID sets the run identifier stamped on logs and the SQLite dump.
func WithRunID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithOutputDir sets the directory output files are written to.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithRawSubjects enables the undeduplicated CSV dump.
func WithRawSubjects(enabled bool) Option {
	return func(s *Service) {
		s.rawSubjects = enabled
	}
}

// WithSQLite enables the SQLite dump of all assignments.
func WithSQLite(enabled bool) Option {
	return func(s *Service) {
		s.sqlite = enabled
	}
}

// WithReadWorkers sets how many results files are read at once.
func WithReadWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.readers = n
		}
	}
}
