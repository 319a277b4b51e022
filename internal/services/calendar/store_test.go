package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type stubSource struct {
	holidays   []models.CalendarEvent
	holidayErr error
	periods    map[models.PeriodKind][]models.DateRange
	periodErr  map[models.PeriodKind]error
}

func (s stubSource) LoadHolidays(context.Context) ([]models.CalendarEvent, error) {
	return s.holidays, s.holidayErr
}

func (s stubSource) LoadPeriods(_ context.Context, kind models.PeriodKind) ([]models.DateRange, error) {
	if err := s.periodErr[kind]; err != nil {
		return nil, err
	}
	return s.periods[kind], nil
}

func TestStoreLookups(t *testing.T) {
	store, warnings := New(models.CalendarSnapshot{
		Holidays: []models.CalendarEvent{
			{Date: util.MustDate("2025-03-31"), Label: "Idul Fitri"},
			{Date: util.MustDate("2025-01-01"), Label: "Tahun Baru"},
		},
		Fasting: []models.DateRange{{Start: util.MustDate("2025-03-01"), End: util.MustDate("2025-03-30")}},
		Exams:   []models.DateRange{{Start: util.MustDate("2025-06-16"), End: util.MustDate("2025-06-20")}},
	})
	require.Empty(t, warnings)

	assert.True(t, store.ContainsHoliday(util.MustDate("2025-01-01")))
	assert.False(t, store.ContainsHoliday(util.MustDate("2025-01-02")))
	assert.True(t, store.ContainsFasting(util.MustDate("2025-03-01")))
	assert.True(t, store.ContainsFasting(util.MustDate("2025-03-30")))
	assert.False(t, store.ContainsFasting(util.MustDate("2025-03-31")))
	assert.True(t, store.ContainsExam(util.MustDate("2025-06-18")))

	table := store.HolidayTable()
	require.Len(t, table, 2)
	assert.Equal(t, "Tahun Baru", table[0].Label, "holiday table is ordered by date")
	for _, ev := range table {
		assert.Zero(t, ev.LowerWindow)
		assert.Zero(t, ev.UpperWindow)
	}

	table[0].Label = "mutated"
	assert.Equal(t, "Tahun Baru", store.HolidayTable()[0].Label, "HolidayTable returns a copy")
}

func TestStoreSkipsIncompleteAndInvertedRanges(t *testing.T) {
	store, warnings := New(models.CalendarSnapshot{
		Fasting: []models.DateRange{
			{Start: util.MustDate("2024-03-10")},
			{End: util.MustDate("2024-04-09")},
			{Start: util.MustDate("2024-05-10"), End: util.MustDate("2024-05-01")},
			{Start: util.MustDate("2025-03-01"), End: util.MustDate("2025-03-02")},
		},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, TableFasting, warnings[0].Table)

	_, fastingDays, _ := store.Stats()
	assert.Equal(t, 2, fastingDays, "incomplete ranges are skipped, not treated as unbounded")
	assert.False(t, store.ContainsFasting(util.MustDate("2024-03-11")))
	assert.Len(t, store.Snapshot().Fasting, 1)
}

func TestLoadDegradesPerTable(t *testing.T) {
	src := stubSource{
		holidayErr: errors.New("sheet Holidays not found"),
		periods: map[models.PeriodKind][]models.DateRange{
			models.PeriodExam: {{Start: util.MustDate("2025-06-16"), End: util.MustDate("2025-06-20")}},
		},
		periodErr: map[models.PeriodKind]error{models.PeriodFasting: errors.New("corrupt")},
	}

	store, warnings := Load(context.Background(), src)
	require.NotNil(t, store)
	require.Len(t, warnings, 2)
	assert.Equal(t, TableHolidays, warnings[0].Table)
	assert.Equal(t, TableFasting, warnings[1].Table)

	assert.Empty(t, store.HolidayTable())
	assert.False(t, store.ContainsFasting(util.MustDate("2025-03-05")))
	assert.True(t, store.ContainsExam(util.MustDate("2025-06-17")), "healthy tables still load")
}
