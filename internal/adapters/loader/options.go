package loader

import (
	"github.com/okian/demoreport/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkers sets how many files are read at once.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithReader replaces the file reader.
func WithReader(r Reader) Option {
	return func(p *Pool) {
		if r != nil {
			p.reader = r
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
