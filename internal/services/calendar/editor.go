package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

var (
	ErrInvalidPeriod  = errors.New("period start must not be after end")
	ErrInvalidHoliday = errors.New("holiday needs a date and a label")
)

// Backend is a calendar store that can be both read and rewritten.
type Backend interface {
	repository.CalendarSource
	repository.CalendarWriter
}

// Editor serialises every write to the calendar backend. Readers get an
// immutable EventStore; after each successful write the store is rebuilt.
type Editor struct {
	mu      sync.Mutex
	backend Backend
	l       *applogger.Logger
	current *EventStore
}

func NewEditor(backend Backend, l *applogger.Logger) *Editor {
	if l == nil {
		l = applogger.Nop()
	}
	return &Editor{backend: backend, l: l}
}

// Store returns the current store, loading it on first use. Load warnings are logged.
func (e *Editor) Store(ctx context.Context) *EventStore {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		e.reloadLocked(ctx)
	}
	return e.current
}

// Reload rebuilds the store from the backend and returns the load warnings.
func (e *Editor) Reload(ctx context.Context) (*EventStore, []Warning) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.reloadLocked(ctx)
	return e.current, w
}

func (e *Editor) reloadLocked(ctx context.Context) []Warning {
	store, warnings := Load(ctx, e.backend)
	for _, w := range warnings {
		e.l.Warn("calendar table degraded", applogger.String("table", w.Table), applogger.Error(w.Err))
	}
	h, f, x := store.Stats()
	e.l.Info("calendar loaded",
		applogger.Int("holidays", h),
		applogger.Int("fasting_days", f),
		applogger.Int("exam_days", x),
	)
	e.current = store
	return warnings
}

// AddHoliday appends a holiday and persists the workbook.
func (e *Editor) AddHoliday(ctx context.Context, date time.Time, label string) error {
	label = strings.TrimSpace(label)
	if date.IsZero() || label == "" {
		return ErrInvalidHoliday
	}
	return e.edit(ctx, func(snap *models.CalendarSnapshot) error {
		snap.Holidays = dedupeHolidays(append(snap.Holidays, models.CalendarEvent{Date: util.Day(date), Label: label}))
		return nil
	})
}

// MergeHolidays adds events not already present by (date, label) and reports how many were new.
func (e *Editor) MergeHolidays(ctx context.Context, events []models.CalendarEvent) (int, error) {
	added := 0
	err := e.edit(ctx, func(snap *models.CalendarSnapshot) error {
		before := len(snap.Holidays)
		snap.Holidays = dedupeHolidays(append(snap.Holidays, events...))
		added = len(snap.Holidays) - before
		return nil
	})
	return added, err
}

// AddPeriod appends a fasting or exam range, keeping the table sorted by start.
func (e *Editor) AddPeriod(ctx context.Context, kind models.PeriodKind, start, end time.Time) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown period kind %q", kind)
	}
	r := models.DateRange{Start: util.Day(start), End: util.Day(end)}
	if !r.Valid() {
		return ErrInvalidPeriod
	}
	return e.edit(ctx, func(snap *models.CalendarSnapshot) error {
		ranges := append(snap.Periods(kind), r)
		sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })
		snap.SetPeriods(kind, ranges)
		return nil
	})
}

// edit loads every table strictly. A table that cannot be read would otherwise
// be written back empty.
func (e *Editor) edit(ctx context.Context, mutate func(*models.CalendarSnapshot) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var snap models.CalendarSnapshot
	var err error
	if snap.Holidays, err = e.backend.LoadHolidays(ctx); err != nil {
		return fmt.Errorf("load holidays for edit: %w", err)
	}
	for _, kind := range []models.PeriodKind{models.PeriodFasting, models.PeriodExam} {
		ranges, err := e.backend.LoadPeriods(ctx, kind)
		if err != nil {
			return fmt.Errorf("load %s for edit: %w", kind, err)
		}
		snap.SetPeriods(kind, ranges)
	}

	if err := mutate(&snap); err != nil {
		return err
	}
	if err := e.backend.Save(ctx, snap); err != nil {
		e.l.Error("calendar save failed", applogger.Error(err))
		return fmt.Errorf("save calendar: %w", err)
	}
	e.reloadLocked(ctx)
	return nil
}
