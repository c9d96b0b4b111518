// Package clock provides the wall-clock time source the ledger engine uses
// for every "now" it reasons about, so tests can substitute a fixed instant
// instead of depending on real elapsed time.
package clock

import "time"

// Clock returns the current instant. RealClock is the production
// implementation; tests pass a FixedClock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the operating system's wall clock in UTC.
type RealClock struct{}

// Now returns the current UTC instant.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Advance mutates it in place,
// which is convenient for sweeper tests that need "time to pass".
type FixedClock struct {
	at time.Time
}

// NewFixedClock returns a FixedClock pinned at t.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{at: t} }

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time { return c.at }

// Advance moves the pinned instant forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

// IsPast reports whether t is strictly before c.Now().
func IsPast(c Clock, t time.Time) bool { return t.Before(c.Now()) }

// FutureOffset returns the instant offsetSeconds in the future of c.Now().
func FutureOffset(c Clock, offsetSeconds int64) time.Time {
	return c.Now().Add(time.Duration(offsetSeconds) * time.Second)
}

// StartOfDay returns midnight UTC on the day of t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of the day of t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}
