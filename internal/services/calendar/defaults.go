package calendar

import (
	"sort"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// DefaultFasting returns the Ramadan seasons seeded into a new workbook.
func DefaultFasting() []models.DateRange {
	return ranges(
		"2022-04-02", "2022-05-01",
		"2023-03-22", "2023-04-21",
		"2024-03-10", "2024-04-09",
		"2025-03-01", "2025-03-30",
		"2026-02-17", "2026-03-19",
	)
}

// DefaultExams returns the school exam weeks seeded into a new workbook.
func DefaultExams() []models.DateRange {
	return ranges(
		"2022-06-13", "2022-06-17",
		"2022-12-05", "2022-12-09",
		"2023-06-12", "2023-06-16",
		"2023-12-04", "2023-12-08",
		"2024-06-10", "2024-06-14",
		"2024-12-09", "2024-12-13",
		"2025-06-16", "2025-06-20",
	)
}

func ranges(bounds ...string) []models.DateRange {
	out := make([]models.DateRange, 0, len(bounds)/2)
	for i := 0; i+1 < len(bounds); i += 2 {
		out = append(out, models.DateRange{Start: util.MustDate(bounds[i]), End: util.MustDate(bounds[i+1])})
	}
	return out
}

// dedupeHolidays drops repeated (date, label) pairs, keeping first occurrence, sorted by date.
func dedupeHolidays(in []models.CalendarEvent) []models.CalendarEvent {
	type key struct {
		day   int64
		label string
	}
	seen := make(map[key]struct{}, len(in))
	out := make([]models.CalendarEvent, 0, len(in))
	for _, ev := range in {
		k := key{util.DayNumber(ev.Date), ev.Label}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		ev.Date = util.Day(ev.Date)
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
