// Package clock implements the time-window algebra used as the scope
// of count-based conditions: time-of-day intervals, recurring deltas,
// cron expressions, and their union/intersection.
package clock

import "time"

// Interval is a closed time range [Start, End] produced by Rollback.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether dt falls within the interval, inclusive of
// both endpoints.
func (iv Interval) Contains(dt time.Time) bool {
	return !dt.Before(iv.Start) && !dt.After(iv.End)
}

// Period is a time window. Every condition that scopes its historical
// lookup to "the last such-and-such window" does so through a Period.
type Period interface {
	// Contains reports whether dt lies inside the window.
	Contains(dt time.Time) bool
	// Rollback returns the most recent closed interval of this window
	// ending at or before dt. If dt is inside the window, End == dt
	// and Start is the window's prior opening.
	Rollback(dt time.Time) Interval
}

// Always is the period containing every instant.
type Always struct{}

func (Always) Contains(time.Time) bool { return true }

func (Always) Rollback(dt time.Time) Interval {
	return Interval{Start: time.Time{}, End: dt}
}

// Never is the period containing no instant.
type Never struct{}

func (Never) Contains(time.Time) bool { return false }

func (Never) Rollback(dt time.Time) Interval {
	return Interval{Start: dt, End: dt}
}
