// Package clock wraps wall-clock access in a single fixed time zone.
// All entitlement, streak, and day-boundary math goes through it so
// tests can substitute a deterministic source.
package clock

import "time"

// Clock yields the current time in one configured zone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// New returns a Clock fixed to the given location.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *systemClock) Location() *time.Location {
	return c.loc
}

// Fixed is a manually-advanced Clock for tests.
type Fixed struct {
	Current time.Time
}

// NewFixed returns a Fixed clock starting at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{Current: t}
}

func (f *Fixed) Now() time.Time {
	return f.Current
}

func (f *Fixed) Location() *time.Location {
	return f.Current.Location()
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
