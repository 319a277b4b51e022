package util

import (
	"strings"
	"time"
)

// DateLayout is the canonical calendar-day layout used across config, API and files.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order by ParseDate. Spreadsheets edited by hand tend
// to carry day-first dates, so those come after the ISO forms.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"01-02-06",
	"2 January 2006",
}

// Day truncates t to midnight UTC of its calendar day (in t's own location).
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar day. Returns (t, true) if any layout worked.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// MustDate parses YYYY-MM-DD and panics on failure. For literals in tests and seeds.
func MustDate(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDateDefault parses a day or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// DayNumber is the number of days since the Unix epoch; a cheap map key for days.
func DayNumber(t time.Time) int64 {
	return Day(t).Unix() / 86400
}

// DaysBetween returns whole days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(DayNumber(b) - DayNumber(a))
}

// EachDay returns every calendar day in [from, to], inclusive. Empty when to < from.
func EachDay(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	n := DaysBetween(from, to)
	if n < 0 {
		return nil
	}
	out := make([]time.Time, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, from.AddDate(0, 0, i))
	}
	return out
}

// Compact formats a day as YYYYMMDD.
func Compact(t time.Time) string {
	return t.Format("20060102")
}

// MondayIndex maps a weekday to Monday=0 ... Sunday=6.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
