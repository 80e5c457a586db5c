// Package window partitions a date range into sequential search windows.
//
// The remote search API caps any single query at 1000 results, so the
// overall extraction range is split into calendar-aligned sub-ranges that
// are each searched independently. Window generation is a pure function of
// its inputs: re-running it with the same range and granularity always
// reproduces the same plan, which is what makes checkpoint indices stable
// across restarts.
package window

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Granularity selects the size of generated windows.
type Granularity string

const (
	// Monthly generates one window per calendar month.
	Monthly Granularity = "monthly"

	// Yearly generates one window per calendar year.
	Yearly Granularity = "yearly"
)

// ErrInvalidRange indicates start is not strictly before end.
var ErrInvalidRange = errors.New("window range start must be before end")

// ErrInvalidGranularity indicates an unrecognized granularity value.
var ErrInvalidGranularity = errors.New("invalid window granularity")

// ParseGranularity parses a granularity string ("monthly" or "yearly").
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// String formats the window as "2024-01-01..2024-02-01".
func (w Window) String() string {
	return w.Start.UTC().Format("2006-01-02") + ".." + w.End.UTC().Format("2006-01-02")
}

// Plan generates the ordered sequence of windows covering [start, end).
//
// Windows are contiguous, non-overlapping, and their union equals the
// range exactly. Interior boundaries are calendar-aligned (first of the
// month or January 1st); the first and last windows may be partial when
// the range does not fall on those boundaries. Windows are ordered
// oldest first.
func Plan(start, end time.Time, g Granularity) ([]Window, error) {
	start = start.UTC()
	end = end.UTC()
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var next func(time.Time) time.Time
	switch g {
	case Monthly:
		next = nextMonth
	case Yearly:
		next = nextYear
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, g)
	}

	var windows []Window
	current := start
	for current.Before(end) {
		boundary := next(current)
		windowEnd := boundary
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, Window{Start: current, End: windowEnd})
		current = boundary
	}
	return windows, nil
}

// nextMonth returns the first instant of the month after t.
func nextMonth(t time.Time) time.Time {
	year, month := t.Year(), t.Month()
	if month == time.December {
		return time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
}

// nextYear returns the first instant of the year after t.
func nextYear(t time.Time) time.Time {
	return time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}
