package period

import "time"

// Option configures an Assigner.
type Option func(*Assigner)

// WithLocation sets the zone used for timestamps that carry none.
func WithLocation(loc *time.Location) Option {
	return func(a *Assigner) {
		if loc != nil {
			a.loc = loc
		}
	}
}
