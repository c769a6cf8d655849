package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is the `[hh:mm, hh:mm]` interval on the local calendar day,
// with overnight wrap when start > end. Both endpoints optional: if
// neither is set the window is always open. If both are set and equal
// it spans the entire calendar day.
type TimeOfDay struct {
	hasStart, hasEnd bool
	start, end       time.Duration // offset from local midnight
}

// NewTimeOfDay parses "hh:mm" strings. Empty string means "unbounded"
// on that side.
func NewTimeOfDay(start, end string) (TimeOfDay, error) {
	var tod TimeOfDay
	if start != "" {
		d, err := parseClock(start)
		if err != nil {
			return tod, fmt.Errorf("parse start: %w", err)
		}
		tod.hasStart = true
		tod.start = d
	}
	if end != "" {
		d, err := parseClock(end)
		if err != nil {
			return tod, fmt.Errorf("parse end: %w", err)
		}
		tod.hasEnd = true
		tod.end = d
	}
	return tod, nil
}

func parseClock(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q, want hh:mm", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func dayStart(dt time.Time) time.Time {
	y, m, d := dt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, dt.Location())
}

// allDay reports whether this window is the "entire calendar day"
// variant: both endpoints set and equal.
func (t TimeOfDay) allDay() bool {
	return t.hasStart && t.hasEnd && t.start == t.end
}

// windowLen is the duration of one occurrence of the window, handling
// midnight wrap by letting the length go past 24h worth of offset.
func (t TimeOfDay) windowLen() time.Duration {
	if t.allDay() {
		return 24 * time.Hour
	}
	length := t.end - t.start
	if length < 0 {
		length += 24 * time.Hour
	}
	return length
}

func (t TimeOfDay) anchorOffset() time.Duration {
	if t.allDay() {
		return 0
	}
	return t.start
}

func (t TimeOfDay) Contains(dt time.Time) bool {
	if !t.hasStart && !t.hasEnd {
		return true
	}
	iv := t.Rollback(dt)
	return iv.Contains(dt)
}

func (t TimeOfDay) Rollback(dt time.Time) Interval {
	if !t.hasStart && !t.hasEnd {
		return Interval{Start: time.Time{}, End: dt}
	}

	length := t.windowLen()
	offset := t.anchorOffset()

	ws := dayStart(dt).Add(offset)
	we := ws.Add(length)
	if dt.Before(ws) {
		// Window anchored "today" hasn't opened yet; the window that
		// covers dt started yesterday (handles midnight wrap).
		ws = ws.Add(-24 * time.Hour)
		we = we.Add(-24 * time.Hour)
	}

	if !dt.After(we) {
		// dt lies inside the window.
		return Interval{Start: ws, End: dt}
	}
	// dt is past the window's close; it is the most recent closed interval.
	return Interval{Start: ws, End: we}
}
