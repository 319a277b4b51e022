package forecast

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/evaluation"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type stubModel struct{}

func (stubModel) ID() string { return "m" }

// countingEngine predicts day-of-month + 0.5 and records predict calls.
type countingEngine struct {
	calls int
	rows  []models.FeatureRow
	skip  string
}

func (e *countingEngine) Fit(context.Context, []models.FeatureRow, []string, []models.CalendarEvent) (domsvc.Model, error) {
	return stubModel{}, nil
}

func (e *countingEngine) Predict(_ context.Context, _ domsvc.Model, rows []models.FeatureRow) ([]models.Prediction, error) {
	e.calls++
	e.rows = rows
	out := make([]models.Prediction, 0, len(rows))
	for _, r := range rows {
		if r.Date.Format(util.DateLayout) == e.skip {
			continue
		}
		v := float64(r.Date.Day()) + 0.5
		out = append(out, models.Prediction{Date: r.Date, Yhat: v, Lower: -v, Upper: v + 1})
	}
	return out, nil
}

func (e *countingEngine) Release(context.Context, domsvc.Model) error { return nil }

func trained(start, end string) *evaluation.TrainedModel {
	return &evaluation.TrainedModel{Model: stubModel{}, HistoryStart: util.MustDate(start), HistoryEnd: util.MustDate(end)}
}

func TestForecastAllSpansHistoryPlusHorizon(t *testing.T) {
	engine := &countingEngine{}
	store, _ := calendar.New(models.CalendarSnapshot{
		Holidays: []models.CalendarEvent{{Date: util.MustDate("2024-12-25"), Label: "Natal"}},
	})

	rows, err := NewForecaster(engine).ForecastAll(context.Background(), trained("2024-12-20", "2024-12-31"), 5, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, engine.calls)
	require.Len(t, rows, 17)
	assert.Equal(t, util.MustDate("2024-12-20"), rows[0].Date)
	assert.Equal(t, util.MustDate("2025-01-05"), rows[len(rows)-1].Date)
	for i := 1; i < len(rows); i++ {
		assert.Equal(t, 1, util.DaysBetween(rows[i-1].Date, rows[i].Date))
	}

	// calendar flags recomputed on the axis
	for _, r := range engine.rows {
		if r.Date.Equal(util.MustDate("2024-12-25")) {
			assert.True(t, r.IsHoliday)
			assert.True(t, r.Libur)
		}
		assert.True(t, math.IsNaN(r.Y))
	}

	// 20.5 rounds away from zero; -20.5 too
	assert.Equal(t, 21.0, rows[0].Point)
	assert.Equal(t, -21.0, rows[0].Lower)
}

func TestForecastFiltersAtCutoff(t *testing.T) {
	engine := &countingEngine{skip: "2025-01-02"}
	rows, err := NewForecaster(engine).Forecast(context.Background(), trained("2024-12-01", "2024-12-31"), 3, calendar.Empty(), util.MustDate("2025-01-01"), nil)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, util.MustDate("2025-01-01"), rows[0].Date)
	assert.True(t, math.IsNaN(rows[1].Point))
	assert.Equal(t, 4.0, rows[2].Point)
}

func TestForecastCutoffBeyondAxisIsEmpty(t *testing.T) {
	rows, err := NewForecaster(&countingEngine{}).Forecast(context.Background(), trained("2024-12-01", "2024-12-31"), 1, calendar.Empty(), util.MustDate("2025-06-01"), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestForecastRejectsHorizon(t *testing.T) {
	f := NewForecaster(&countingEngine{})
	for _, h := range []int{0, 366} {
		_, err := f.ForecastAll(context.Background(), trained("2024-12-01", "2024-12-31"), h, calendar.Empty(), nil)
		assert.ErrorIs(t, err, ErrInvalidHorizon)
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.0, Round(2.5))
	assert.Equal(t, -3.0, Round(-2.5))
	assert.True(t, math.IsNaN(Round(math.NaN())))
	assert.Equal(t, 0.0, Round(0.4))
}
