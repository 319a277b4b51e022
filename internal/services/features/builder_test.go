package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type fakeCalendar struct {
	holidays map[string]bool
	fasting  map[string]bool
	exams    map[string]bool
}

func (c fakeCalendar) ContainsHoliday(d time.Time) bool { return c.holidays[d.Format(util.DateLayout)] }
func (c fakeCalendar) ContainsFasting(d time.Time) bool { return c.fasting[d.Format(util.DateLayout)] }
func (c fakeCalendar) ContainsExam(d time.Time) bool    { return c.exams[d.Format(util.DateLayout)] }

func series(start string, qty ...float64) models.RawSalesSeries {
	day := util.MustDate(start)
	s := models.RawSalesSeries{Category: "SNACK"}
	for i, q := range qty {
		d := day.AddDate(0, 0, i)
		if math.IsNaN(q) {
			s.Points = append(s.Points, models.MissingQuantity(d))
			continue
		}
		s.Points = append(s.Points, models.Quantity(d, q))
	}
	return s
}

func TestBuildDropsUnusableRows(t *testing.T) {
	s := series("2025-01-06", 10, math.NaN(), 12, math.NaN(), 14)
	s.Points = append(s.Points, models.ParseQuantity(util.MustDate("2025-01-11"), "n/a"))

	rows, err := NewBuilder().Build(s, fakeCalendar{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-01-06", rows[0].Date.Format(util.DateLayout))
	assert.Equal(t, "2025-01-08", rows[1].Date.Format(util.DateLayout))
	assert.Equal(t, "2025-01-10", rows[2].Date.Format(util.DateLayout))
}

func TestBuildNoUsableData(t *testing.T) {
	_, err := NewBuilder().Build(series("2025-01-06", math.NaN(), math.NaN()), fakeCalendar{})
	assert.ErrorIs(t, err, models.ErrNoUsableData)
	assert.ErrorIs(t, err, models.ErrPreparationFailed)

	_, err = NewBuilder().Build(models.RawSalesSeries{}, fakeCalendar{})
	assert.ErrorIs(t, err, models.ErrNoUsableData)
}

func TestBuildWinsorizesToPercentiles(t *testing.T) {
	qty := make([]float64, 0, 101)
	for i := 0; i < 100; i++ {
		qty = append(qty, float64(10+i%5))
	}
	qty = append(qty, 5000) // promo spike

	rows, err := NewBuilder().Build(series("2024-01-01", qty...), fakeCalendar{})
	require.NoError(t, err)
	require.Len(t, rows, len(qty))

	lo, hi := Bounds(qty, 0.01, 0.99)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.Y, lo)
		assert.LessOrEqual(t, r.Y, hi)
	}
	assert.Less(t, rows[len(rows)-1].Y, 5000.0)
}

func TestBuildCalendarFlags(t *testing.T) {
	cal := fakeCalendar{
		holidays: map[string]bool{"2025-03-31": true},
		fasting:  map[string]bool{"2025-03-29": true, "2025-03-30": true},
		exams:    map[string]bool{"2025-04-01": true},
	}
	// Fri 2025-03-28 .. Tue 2025-04-01
	rows, err := NewBuilder().Build(series("2025-03-28", 1, 2, 3, 4, 5), cal)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	fri, sat, sun, mon, tue := rows[0], rows[1], rows[2], rows[3], rows[4]
	assert.Equal(t, 4, fri.DayOfWeek)
	assert.False(t, fri.Weekend)
	assert.False(t, fri.Libur)

	assert.True(t, sat.Weekend)
	assert.True(t, sat.IsRamadan)
	assert.True(t, sat.Libur)
	assert.Equal(t, 6, sun.DayOfWeek)

	assert.True(t, mon.IsHoliday)
	assert.False(t, mon.Weekend)
	assert.True(t, mon.Libur)

	assert.True(t, tue.IsUjian)
	assert.False(t, tue.Libur)
	assert.Equal(t, 4, tue.Month)
	assert.Equal(t, 2025, tue.Year)
}

func TestLiburIsHolidayOrWeekend(t *testing.T) {
	cal := fakeCalendar{holidays: map[string]bool{}}
	for d := util.MustDate("2024-01-01"); d.Year() == 2024; d = d.AddDate(0, 0, 3) {
		cal.holidays[d.Format(util.DateLayout)] = true
	}
	rows := CalendarRows(util.MustDate("2024-01-01"), util.MustDate("2024-12-31"), cal)
	require.Len(t, rows, 366)
	for _, r := range rows {
		assert.Equal(t, r.IsHoliday || r.Weekend, r.Libur, r.Date)
		assert.True(t, math.IsNaN(r.Y))
	}
}

func TestBuildMergesDuplicateDatesAndSorts(t *testing.T) {
	day := util.MustDate("2025-02-03")
	s := models.RawSalesSeries{Points: []models.SalesPoint{
		models.Quantity(day.AddDate(0, 0, 1), 7),
		models.Quantity(day, 3),
		models.Quantity(day, 4),
	}}
	rows, err := NewBuilder().WithBounds(0, 1).Build(s, fakeCalendar{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day, rows[0].Date)
	assert.Equal(t, 7.0, rows[0].Y)
}

func TestQuantileLinear(t *testing.T) {
	v := []float64{4, 1, 3, 2}
	assert.InDelta(t, 1.03, Quantile(v, 0.01), 1e-9)
	assert.InDelta(t, 3.97, Quantile(v, 0.99), 1e-9)
	assert.InDelta(t, 2.5, Quantile(v, 0.5), 1e-9)
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.99))
}
