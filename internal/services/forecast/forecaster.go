// Package forecast projects a trained model over its history plus a horizon.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/diagnostics"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/evaluation"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/features"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const (
	stage      = "forecast"
	maxHorizon = 365
)

var ErrInvalidHorizon = errors.New("horizon out of range")

type Forecaster struct {
	engine domsvc.ForecastEngine
}

func NewForecaster(engine domsvc.ForecastEngine) *Forecaster {
	return &Forecaster{engine: engine}
}

// Forecast returns rows dated on or after historyCutoff.
func (f *Forecaster) Forecast(ctx context.Context, model *evaluation.TrainedModel, horizonDays int, cal features.Calendar, historyCutoff time.Time, sink domsvc.DiagnosticsSink) ([]models.ForecastRow, error) {
	all, err := f.ForecastAll(ctx, model, horizonDays, cal, sink)
	if err != nil {
		return nil, err
	}
	return FilterFrom(all, historyCutoff), nil
}

// ForecastAll returns one row per day from the first training date through
// the last training date plus horizonDays.
func (f *Forecaster) ForecastAll(ctx context.Context, model *evaluation.TrainedModel, horizonDays int, cal features.Calendar, sink domsvc.DiagnosticsSink) ([]models.ForecastRow, error) {
	if model == nil || model.Model == nil {
		return nil, fmt.Errorf("forecast: no trained model")
	}
	if horizonDays < 1 || horizonDays > maxHorizon {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidHorizon, horizonDays, maxHorizon)
	}
	sink = diagnostics.Or(sink)

	end := util.Day(model.HistoryEnd).AddDate(0, 0, horizonDays)
	axis := features.CalendarRows(model.HistoryStart, end, cal)
	if len(axis) == 0 {
		return nil, fmt.Errorf("forecast: empty axis %s..%s", model.HistoryStart.Format(util.DateLayout), end.Format(util.DateLayout))
	}

	preds, err := f.engine.Predict(ctx, model.Model, axis)
	if err != nil {
		return nil, fmt.Errorf("predict forecast axis: %w", err)
	}
	aligned := evaluation.Align(axis, preds)

	out := make([]models.ForecastRow, len(aligned))
	missing := 0
	for i, p := range aligned {
		if math.IsNaN(p.Yhat) {
			missing++
		}
		out[i] = models.ForecastRow{
			Date:  axis[i].Date,
			Point: Round(p.Yhat),
			Lower: Round(p.Lower),
			Upper: Round(p.Upper),
		}
	}

	fields := map[string]interface{}{
		"axis_start": model.HistoryStart.Format(util.DateLayout),
		"axis_end":   end.Format(util.DateLayout),
		"rows":       len(out),
	}
	if missing > 0 {
		fields["missing"] = missing
		sink.Emit(domsvc.DiagnosticEvent{Stage: stage, Kind: diagnostics.KindWarning, Message: "engine returned no estimate for some dates", Fields: fields})
	} else {
		sink.Emit(domsvc.DiagnosticEvent{Stage: stage, Kind: diagnostics.KindInfo, Message: "forecast axis predicted", Fields: fields})
	}
	return out, nil
}

// FilterFrom keeps rows dated on or after from.
func FilterFrom(rows []models.ForecastRow, from time.Time) []models.ForecastRow {
	from = util.Day(from)
	out := make([]models.ForecastRow, 0, len(rows))
	for _, r := range rows {
		if !r.Date.Before(from) {
			out = append(out, r)
		}
	}
	return out
}

// Round rounds half away from zero. NaN stays NaN.
func Round(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v)
}
