// Package clock provides the single time source used for all date semantics:
// queue dates, invoice/record numbering periods, and the record lock
// threshold. The clinic operates in one fixed timezone, so "today" is always
// computed in that zone.
package clock

import (
	"fmt"
	"time"
)

type Clock interface {
	// Now returns the current instant in the clinic timezone.
	Now() time.Time
	// Today returns midnight of the current day in the clinic timezone.
	Today() time.Time
}

type clinicClock struct {
	loc *time.Location
}

// New loads the clinic timezone and returns a real clock.
func New(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load clinic timezone %q: %w", timezone, err)
	}
	return &clinicClock{loc: loc}, nil
}

func (c *clinicClock) Now() time.Time { return time.Now().In(c.loc) }

func (c *clinicClock) Today() time.Time {
	return Midnight(c.Now())
}

// Midnight truncates t to the start of its day, preserving the location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Fixed is a settable clock for tests.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time   { return f.T }
func (f *Fixed) Today() time.Time { return Midnight(f.T) }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
