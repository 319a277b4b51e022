// Package calendar owns the holiday, fasting and exam tables that drive the
// calendar regressors.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// Table names, matching the workbook sheet names.
const (
	TableHolidays = "Holidays"
	TableFasting  = string(models.PeriodFasting)
	TableExams    = string(models.PeriodExam)
)

// Warning reports a degraded table. The store is still usable.
type Warning struct {
	Table string
	Err   error
}

func (w Warning) Error() string { return fmt.Sprintf("calendar %s: %v", w.Table, w.Err) }

func (w Warning) Unwrap() error { return w.Err }

// EventStore is an immutable set of calendar lookups. Safe for concurrent reads.
type EventStore struct {
	holidays map[int64]struct{}
	fasting  map[int64]struct{}
	exams    map[int64]struct{}
	table    []models.CalendarEvent
	snapshot models.CalendarSnapshot
}

// Load builds a store from src. Each table loads independently; a failing
// table becomes empty and is reported as a Warning.
func Load(ctx context.Context, src repository.CalendarSource) (*EventStore, []Warning) {
	var (
		snap     models.CalendarSnapshot
		warnings []Warning
	)

	holidays, err := src.LoadHolidays(ctx)
	if err != nil {
		warnings = append(warnings, Warning{Table: TableHolidays, Err: err})
	} else {
		snap.Holidays = holidays
	}

	for _, kind := range []models.PeriodKind{models.PeriodFasting, models.PeriodExam} {
		ranges, err := src.LoadPeriods(ctx, kind)
		if err != nil {
			warnings = append(warnings, Warning{Table: string(kind), Err: err})
			continue
		}
		snap.SetPeriods(kind, ranges)
	}

	store, skipped := New(snap)
	return store, append(warnings, skipped...)
}

// New builds a store from an in-memory snapshot. Ranges missing a bound are
// dropped silently; inverted ranges are dropped with a Warning.
func New(snap models.CalendarSnapshot) (*EventStore, []Warning) {
	s := &EventStore{
		holidays: make(map[int64]struct{}, len(snap.Holidays)),
		fasting:  make(map[int64]struct{}),
		exams:    make(map[int64]struct{}),
	}
	var warnings []Warning

	for _, ev := range snap.Holidays {
		if ev.Date.IsZero() {
			continue
		}
		ev.Date = util.Day(ev.Date)
		ev.LowerWindow, ev.UpperWindow = 0, 0
		s.holidays[util.DayNumber(ev.Date)] = struct{}{}
		s.table = append(s.table, ev)
	}
	sort.SliceStable(s.table, func(i, j int) bool { return s.table[i].Date.Before(s.table[j].Date) })
	s.snapshot.Holidays = append([]models.CalendarEvent(nil), s.table...)

	fill := func(kind models.PeriodKind, ranges []models.DateRange, into map[int64]struct{}) []models.DateRange {
		kept := make([]models.DateRange, 0, len(ranges))
		for _, r := range ranges {
			if r.Start.IsZero() || r.End.IsZero() {
				continue
			}
			r = models.DateRange{Start: util.Day(r.Start), End: util.Day(r.End)}
			if !r.Valid() {
				warnings = append(warnings, Warning{
					Table: string(kind),
					Err:   fmt.Errorf("range %s..%s has start after end", r.Start.Format(util.DateLayout), r.End.Format(util.DateLayout)),
				})
				continue
			}
			for _, d := range util.EachDay(r.Start, r.End) {
				into[util.DayNumber(d)] = struct{}{}
			}
			kept = append(kept, r)
		}
		return kept
	}
	s.snapshot.Fasting = fill(models.PeriodFasting, snap.Fasting, s.fasting)
	s.snapshot.Exams = fill(models.PeriodExam, snap.Exams, s.exams)

	return s, warnings
}

// Empty returns a store with no events.
func Empty() *EventStore {
	s, _ := New(models.CalendarSnapshot{})
	return s
}

func (s *EventStore) ContainsHoliday(d time.Time) bool { return has(s.holidays, d) }

func (s *EventStore) ContainsFasting(d time.Time) bool { return has(s.fasting, d) }

func (s *EventStore) ContainsExam(d time.Time) bool { return has(s.exams, d) }

func has(set map[int64]struct{}, d time.Time) bool {
	_, ok := set[util.DayNumber(d)]
	return ok
}

// HolidayTable returns the holiday-effect table ordered by date. The slice is a copy.
func (s *EventStore) HolidayTable() []models.CalendarEvent {
	return append([]models.CalendarEvent(nil), s.table...)
}

// Snapshot returns a copy of the tables the store was built from, after cleaning.
func (s *EventStore) Snapshot() models.CalendarSnapshot {
	return models.CalendarSnapshot{
		Holidays: append([]models.CalendarEvent(nil), s.snapshot.Holidays...),
		Fasting:  append([]models.DateRange(nil), s.snapshot.Fasting...),
		Exams:    append([]models.DateRange(nil), s.snapshot.Exams...),
	}
}

// Stats reports member-day counts per table.
func (s *EventStore) Stats() (holidays, fastingDays, examDays int) {
	return len(s.holidays), len(s.fasting), len(s.exams)
}
