// Package period assigns submissions to reporting periods.
package period

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/okian/demoreport/internal/domain/types"
)

// DefaultZone is the zone for timestamps without one. Funding agency reports
// are kept in Pacific time.
const DefaultZone = "America/Los_Angeles"

// Period is a labelled, inclusive range of calendar dates. Start and End are
// midnight UTC of their dates.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date d falls in the period.
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Table is an ordered set of periods. The first containing period wins.
type Table []Period

// NewTable orders periods by start date, then label.
func NewTable(periods ...Period) Table {
	t := make(Table, 0, len(periods))
	for _, p := range periods {
		t = append(t, Period{Label: p.Label, Start: civil(p.Start), End: civil(p.End)})
	}
	sort.SliceStable(t, func(i, j int) bool {
		if !t[i].Start.Equal(t[j].Start) {
			return t[i].Start.Before(t[j].Start)
		}
		return t[i].Label < t[j].Label
	})
	return t
}

// Lookup returns the label of the first period containing the date of ts,
// taken in ts's own zone.
func (t Table) Lookup(ts time.Time) (string, bool) {
	d := civil(ts)
	for _, p := range t {
		if p.Contains(d) {
			return p.Label, true
		}
	}
	return "", false
}

// Labels returns the period labels in table order.
func (t Table) Labels() []string {
	out := make([]string, len(t))
	for i, p := range t {
		out[i] = p.Label
	}
	return out
}

// civil drops the clock and zone, keeping the wall-clock date.
func civil(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// epoch stands in for an absent timestamp.
var epoch = time.Unix(0, 0).UTC()

// Assigner parses submit times and maps them to period labels.
type Assigner struct {
	table Table
	loc   *time.Location
}

// NewAssigner returns an Assigner over table. Zone-less timestamps are read
// in DefaultZone unless WithLocation says otherwise.
func NewAssigner(table Table, opts ...Option) *Assigner {
	a := &Assigner{table: table, loc: time.UTC}
	if loc, err := time.LoadLocation(DefaultZone); err == nil {
		a.loc = loc
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Table returns the periods the assigner checks.
func (a *Assigner) Table() Table {
	return a.table
}

// Parse reads a timestamp in any format dateparse recognizes. An empty
// string is the Unix epoch.
func (a *Assigner) Parse(raw string) (ts time.Time, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return epoch, nil
	}
	// dateparse panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			ts, err = time.Time{}, fmt.Errorf("%w: %q", ErrDateUnparseable, raw)
		}
	}()
	ts, err = dateparse.ParseIn(raw, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrDateUnparseable, raw, err)
	}
	return ts, nil
}

// Assign returns the period label for a raw submit time along with the
// parsed time. Failures yield a sentinel label and a matching error.
func (a *Assigner) Assign(raw string) (string, time.Time, error) {
	ts, err := a.Parse(raw)
	if err != nil {
		return types.YearUnparseable, time.Time{}, err
	}
	label, ok := a.table.Lookup(ts)
	if !ok {
		return types.YearOutOfRange, ts, fmt.Errorf("%w: %s", ErrDateOutOfRange, ts.Format(time.DateOnly))
	}
	return label, ts, nil
}
