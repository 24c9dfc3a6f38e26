package ingest

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive day range. A single-date range has Start == End.
// The zero value is unbounded and contains every date.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is the unbounded default.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// ParseDateRange parses "YYYY-MM-DD" or "YYYY-MM-DD:YYYY-MM-DD".
func ParseDateRange(s string) (DateRange, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 2 {
		return DateRange{}, fmt.Errorf("invalid date range %q", s)
	}

	start, err := time.ParseInLocation(dateLayout, parts[0], time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid date range %q: %w", s, err)
	}

	end := start
	if len(parts) == 2 {
		end, err = time.ParseInLocation(dateLayout, parts[1], time.UTC)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid date range %q: %w", s, err)
		}
	}
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("invalid date range %q: end before start", s)
	}

	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether day (truncated to a date) falls in the range.
func (r DateRange) Contains(day time.Time) bool {
	if r.IsZero() {
		return true
	}
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	if r.IsZero() {
		return "all"
	}
	if r.Start.Equal(r.End) {
		return r.Start.Format(dateLayout)
	}
	return r.Start.Format(dateLayout) + ":" + r.End.Format(dateLayout)
}
