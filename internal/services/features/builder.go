// Package features turns raw daily sales into modelling rows with calendar regressors.
package features

import (
	"math"
	"sort"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// Calendar is the lookup surface the builder needs from an event store.
type Calendar interface {
	ContainsHoliday(d time.Time) bool
	ContainsFasting(d time.Time) bool
	ContainsExam(d time.Time) bool
}

// Default winsorization bounds.
const (
	DefaultLowerQuantile = 0.01
	DefaultUpperQuantile = 0.99
)

// Builder converts a RawSalesSeries into FeatureRows. The zero value is not
// usable; use NewBuilder.
type Builder struct {
	lower float64
	upper float64
}

func NewBuilder() *Builder {
	return &Builder{lower: DefaultLowerQuantile, upper: DefaultUpperQuantile}
}

// WithBounds returns a builder clipping to the given quantiles.
func (b *Builder) WithBounds(lower, upper float64) *Builder {
	return &Builder{lower: lower, upper: upper}
}

// Build drops rows without a usable quantity, clips y to the configured
// quantiles of what remains and attaches calendar flags. The output is
// ascending by date. Gaps are not filled.
func (b *Builder) Build(series models.RawSalesSeries, cal Calendar) ([]models.FeatureRow, error) {
	points := usable(series.Points)
	if len(points) == 0 {
		return nil, models.ErrNoUsableData
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Quantity
	}
	lo, hi := Bounds(values, b.lower, b.upper)

	rows := make([]models.FeatureRow, len(points))
	for i, p := range points {
		row := CalendarRow(p.Date, cal)
		row.Y = Clip(p.Quantity, lo, hi)
		rows[i] = row
	}
	return rows, nil
}

// usable keeps finite quantities, merges duplicate dates by summing, and sorts.
func usable(in []models.SalesPoint) []models.SalesPoint {
	byDay := make(map[int64]int, len(in))
	out := make([]models.SalesPoint, 0, len(in))
	for _, p := range in {
		if !p.Valid || math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0) {
			continue
		}
		key := util.DayNumber(p.Date)
		if i, dup := byDay[key]; dup {
			out[i].Quantity += p.Quantity
			continue
		}
		byDay[key] = len(out)
		out = append(out, models.Quantity(util.Day(p.Date), p.Quantity))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CalendarRow derives every calendar column for a date. Y is NaN.
func CalendarRow(date time.Time, cal Calendar) models.FeatureRow {
	date = util.Day(date)
	dow := util.MondayIndex(date.Weekday())
	row := models.FeatureRow{
		Date:      date,
		Y:         math.NaN(),
		IsHoliday: cal.ContainsHoliday(date),
		IsRamadan: cal.ContainsFasting(date),
		IsUjian:   cal.ContainsExam(date),
		Weekend:   dow >= 5,
		DayOfWeek: dow,
		Month:     int(date.Month()),
		Year:      date.Year(),
	}
	row.Libur = row.IsHoliday || row.Weekend
	return row
}

// CalendarRows builds one row per day in [from, to].
func CalendarRows(from, to time.Time, cal Calendar) []models.FeatureRow {
	days := util.EachDay(from, to)
	rows := make([]models.FeatureRow, len(days))
	for i, d := range days {
		rows[i] = CalendarRow(d, cal)
	}
	return rows
}
