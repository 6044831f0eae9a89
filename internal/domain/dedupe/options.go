package dedupe

import "github.com/okian/demoreport/pkg/logger"

// Option applies a configuration option to the Deduper.
type Option func(*twoPassDeduper)

// WithLogger sets the logger used to report unresolved conflicts.
func WithLogger(l logger.Logger) Option {
	return func(d *twoPassDeduper) {
		if l != nil {
			d.log = l
		}
	}
}

// WithPlaceholders replaces the values treated as missing in the second pass.
func WithPlaceholders(values ...string) Option {
	return func(d *twoPassDeduper) {
		d.placeholders = make(map[string]bool, len(values))
		for _, v := range values {
			d.placeholders[v] = true
		}
	}
}

// WithFill sets the value written into fields still missing at the end.
func WithFill(v string) Option {
	return func(d *twoPassDeduper) {
		d.fill = v
	}
}
