package filter

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Layouts carrying a time of day. Offset-less layouts are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Date-only layouts; four-digit years only, so nothing needs a century pivot.
var dayLayouts = []string{
	dateLayout,
	"2006/01/02",
	"2006.01.02",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	"01-02-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// ParseDate parses a date or timestamp string. dayOnly reports whether the
// input carried no time of day. Values without an explicit offset are UTC;
// values with one are converted to UTC.
func ParseDate(s string) (t time.Time, dayOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("parse date: empty value")
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("parse date: unrecognized format %q", s)
}

// truncateDay drops the time of day of a UTC timestamp.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
