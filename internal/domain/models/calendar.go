package models

import (
	"encoding/json"
	"time"
)

const dayLayout = "2006-01-02"

// PeriodKind names a range table in the calendar workbook.
type PeriodKind string

const (
	PeriodFasting PeriodKind = "Ramadan"
	PeriodExam    PeriodKind = "Ujian"
)

func (k PeriodKind) Valid() bool {
	return k == PeriodFasting || k == PeriodExam
}

// CalendarEvent is a single named holiday. Windows are always zero here; they
// are carried so the forecasting engine receives its holiday-effect shape verbatim.
type CalendarEvent struct {
	Date        time.Time
	Label       string
	LowerWindow int
	UpperWindow int
}

func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date        string `json:"date"`
		Label       string `json:"label"`
		LowerWindow int    `json:"lower_window"`
		UpperWindow int    `json:"upper_window"`
	}{e.Date.Format(dayLayout), e.Label, e.LowerWindow, e.UpperWindow})
}

// DateRange is an inclusive span of days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{r.Start.Format(dayLayout), r.End.Format(dayLayout)})
}

// CalendarSnapshot is the full editable content of the calendar workbook.
type CalendarSnapshot struct {
	Holidays []CalendarEvent `json:"holidays"`
	Fasting  []DateRange     `json:"ramadan"`
	Exams    []DateRange     `json:"ujian"`
}

// Periods returns the range table for kind.
func (s *CalendarSnapshot) Periods(kind PeriodKind) []DateRange {
	if kind == PeriodFasting {
		return s.Fasting
	}
	return s.Exams
}

func (s *CalendarSnapshot) SetPeriods(kind PeriodKind, ranges []DateRange) {
	if kind == PeriodFasting {
		s.Fasting = ranges
		return
	}
	s.Exams = ranges
}
