package evaluation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/diagnostics"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type stubModel string

func (m stubModel) ID() string { return string(m) }

// stubEngine predicts from a fixed date->value table.
type stubEngine struct {
	fitErr   error
	values   map[string]float64
	fitted   []models.FeatureRow
	regs     []string
	released int
}

func (e *stubEngine) Fit(_ context.Context, rows []models.FeatureRow, regressors []string, _ []models.CalendarEvent) (domsvc.Model, error) {
	if e.fitErr != nil {
		return nil, e.fitErr
	}
	e.fitted = rows
	e.regs = regressors
	return stubModel("m1"), nil
}

func (e *stubEngine) Predict(_ context.Context, _ domsvc.Model, rows []models.FeatureRow) ([]models.Prediction, error) {
	out := make([]models.Prediction, 0, len(rows))
	// reversed order to exercise date alignment
	for i := len(rows) - 1; i >= 0; i-- {
		v, ok := e.values[rows[i].Date.Format(util.DateLayout)]
		if !ok {
			continue
		}
		out = append(out, models.Prediction{Date: rows[i].Date, Yhat: v, Lower: v - 1, Upper: v + 1})
	}
	return out, nil
}

func (e *stubEngine) Release(context.Context, domsvc.Model) error {
	e.released++
	return nil
}

func rows(start string, ys ...float64) []models.FeatureRow {
	d := util.MustDate(start)
	out := make([]models.FeatureRow, len(ys))
	for i, y := range ys {
		out[i] = models.FeatureRow{Date: d.AddDate(0, 0, i), Y: y}
	}
	return out
}

func TestEvaluateScoresHoldout(t *testing.T) {
	engine := &stubEngine{values: map[string]float64{
		"2025-01-01": 5,
		"2025-01-02": 11,
		"2025-01-03": 19,
	}}
	data := append(rows("2024-12-29", 1, 2, 3), rows("2025-01-01", 0, 10, 20)...)
	rec := &diagnostics.Recorder{}

	res, err := NewSplitEvaluator(engine).Evaluate(context.Background(), data, nil, util.MustDate("2025-01-01"), rec)
	require.NoError(t, err)

	assert.Len(t, engine.fitted, 3)
	assert.Equal(t, models.ModelRegressors, engine.regs)
	assert.Equal(t, util.MustDate("2024-12-29"), res.Model.HistoryStart)
	assert.Equal(t, util.MustDate("2024-12-31"), res.Model.HistoryEnd)
	require.Len(t, res.Test, 3)

	ev := res.Evaluation
	require.NotNil(t, ev)
	assert.Equal(t, 3, ev.TestRows)
	assert.InDelta(t, 7.5, *ev.MAPE, 1e-9)
	assert.InDelta(t, math.Sqrt(27.0/3), *ev.RMSE, 1e-9)
	// SSres=27, mean=10, SStot=200
	assert.InDelta(t, 1-27.0/200, *ev.R2, 1e-9)
	assert.Equal(t, []string{diagnostics.KindSplit, diagnostics.KindMetric}, rec.Kinds(stage))
}

func TestEvaluateEmptyTrainingSet(t *testing.T) {
	engine := &stubEngine{}
	_, err := NewSplitEvaluator(engine).Evaluate(context.Background(), rows("2025-02-01", 1, 2), nil, util.MustDate("2025-01-01"), nil)
	assert.ErrorIs(t, err, models.ErrEmptyTrainingSet)
	assert.Nil(t, engine.fitted)
}

func TestEvaluateWrapsFitFailure(t *testing.T) {
	cause := errors.New("singular matrix")
	engine := &stubEngine{fitErr: cause}
	_, err := NewSplitEvaluator(engine).Evaluate(context.Background(), rows("2024-12-01", 1, 2, 3), nil, util.MustDate("2025-01-01"), nil)
	assert.ErrorIs(t, err, models.ErrTrainingFailed)
	assert.ErrorIs(t, err, cause)
}

func TestEvaluateWithoutTestRows(t *testing.T) {
	engine := &stubEngine{}
	rec := &diagnostics.Recorder{}
	res, err := NewSplitEvaluator(engine).Evaluate(context.Background(), rows("2024-12-01", 1, 2, 3), nil, util.MustDate("2025-01-01"), rec)
	require.NoError(t, err)
	assert.Nil(t, res.Evaluation)
	assert.Empty(t, res.Test)
	assert.NotNil(t, res.Model)
	assert.Contains(t, rec.Kinds(stage), diagnostics.KindWarning)
}

func TestAlignFillsMissingDates(t *testing.T) {
	test := rows("2025-01-01", 1, 2)
	preds := []models.Prediction{{Date: test[1].Date, Yhat: 4}}
	out := Align(test, preds)
	require.Len(t, out, 2)
	assert.True(t, math.IsNaN(out[0].Yhat))
	assert.Equal(t, test[0].Date, out[0].Date)
	assert.Equal(t, 4.0, out[1].Yhat)
}

func TestAccuracyAllZeroActuals(t *testing.T) {
	ev := Accuracy([]float64{0, 0}, []float64{1, 1})
	require.NotNil(t, ev)
	assert.Nil(t, ev.MAPE)
	assert.InDelta(t, 0.0, *ev.R2, 1e-12)
	assert.InDelta(t, 1.0, *ev.RMSE, 1e-12)
}

func TestAccuracySkipsMissingPredictions(t *testing.T) {
	ev := Accuracy([]float64{10, 20}, []float64{math.NaN(), 18})
	require.NotNil(t, ev)
	assert.Equal(t, 1, ev.TestRows)
	assert.InDelta(t, 10.0, *ev.MAPE, 1e-9)
	assert.Nil(t, Accuracy(nil, nil))
}

func TestSplitUsesCalendarDay(t *testing.T) {
	train, test := Split(rows("2024-12-31", 1, 2), time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC))
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)
}
