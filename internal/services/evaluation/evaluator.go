// Package evaluation splits feature rows at a cutoff, fits the forecasting
// engine on the past and scores it on the held-out rows.
package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/diagnostics"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const stage = "evaluate"

// TrainedModel is a fitted engine handle plus the span of its training rows.
type TrainedModel struct {
	Model        domsvc.Model
	HistoryStart time.Time
	HistoryEnd   time.Time
	TrainRows    int
}

// Result is the output of a split evaluation.
type Result struct {
	Model      *TrainedModel
	Test       []models.FeatureRow
	Evaluation *models.EvaluationResult // nil when the test partition is empty
	Predicted  []models.Prediction      // aligned with Test, empty when Test is
}

type SplitEvaluator struct {
	engine     domsvc.ForecastEngine
	regressors []string
}

func NewSplitEvaluator(engine domsvc.ForecastEngine) *SplitEvaluator {
	return &SplitEvaluator{engine: engine, regressors: append([]string(nil), models.ModelRegressors...)}
}

// Split partitions rows into train (date < cutoff) and test (date >= cutoff).
func Split(rows []models.FeatureRow, cutoff time.Time) (train, test []models.FeatureRow) {
	cutoff = util.Day(cutoff)
	for _, r := range rows {
		if r.Date.Before(cutoff) {
			train = append(train, r)
		} else {
			test = append(test, r)
		}
	}
	return train, test
}

// Evaluate fits on rows before cutoff and scores rows on or after it.
// ErrEmptyTrainingSet means nothing was fitted. Any fit error is wrapped in
// ErrTrainingFailed. An empty test set yields a nil Evaluation.
func (e *SplitEvaluator) Evaluate(ctx context.Context, rows []models.FeatureRow, holidays []models.CalendarEvent, cutoff time.Time, sink domsvc.DiagnosticsSink) (*Result, error) {
	sink = diagnostics.Or(sink)

	train, test := Split(rows, cutoff)
	sink.Emit(domsvc.DiagnosticEvent{
		Stage:   stage,
		Kind:    diagnostics.KindSplit,
		Message: "partitioned rows at cutoff",
		Fields: map[string]interface{}{
			"cutoff": cutoff.Format(util.DateLayout),
			"train":  len(train),
			"test":   len(test),
		},
	})
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: no rows before %s", models.ErrEmptyTrainingSet, cutoff.Format(util.DateLayout))
	}

	model, err := e.engine.Fit(ctx, train, e.regressors, holidays)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTrainingFailed, err)
	}
	res := &Result{
		Model: &TrainedModel{
			Model:        model,
			HistoryStart: train[0].Date,
			HistoryEnd:   train[len(train)-1].Date,
			TrainRows:    len(train),
		},
		Test: test,
	}

	if len(test) == 0 {
		sink.Emit(domsvc.DiagnosticEvent{
			Stage:   stage,
			Kind:    diagnostics.KindWarning,
			Message: "no rows on or after cutoff; evaluation skipped",
		})
		return res, nil
	}

	preds, err := e.engine.Predict(ctx, model, test)
	if err != nil {
		return res, fmt.Errorf("predict test rows: %w", err)
	}
	aligned := Align(test, preds)
	res.Predicted = aligned

	actual := make([]float64, len(test))
	predicted := make([]float64, len(test))
	for i, r := range test {
		actual[i] = r.Y
		predicted[i] = aligned[i].Yhat
	}
	res.Evaluation = Accuracy(actual, predicted)

	if ev := res.Evaluation; ev != nil {
		sink.Emit(domsvc.DiagnosticEvent{
			Stage:   stage,
			Kind:    diagnostics.KindMetric,
			Message: "hold-out accuracy",
			Fields: map[string]interface{}{
				"rmse": ev.RMSE,
				"r2":   ev.R2,
				"mape": ev.MAPE,
				"rows": ev.TestRows,
			},
		})
	}
	return res, nil
}

// Align returns one prediction per row, matched by date. Rows without a
// matching prediction get NaN estimates.
func Align(rows []models.FeatureRow, preds []models.Prediction) []models.Prediction {
	byDay := make(map[int64]models.Prediction, len(preds))
	for _, p := range preds {
		byDay[util.DayNumber(p.Date)] = p
	}
	out := make([]models.Prediction, len(rows))
	for i, r := range rows {
		p, ok := byDay[util.DayNumber(r.Date)]
		if !ok {
			p = models.Prediction{Date: r.Date, Yhat: nan, Lower: nan, Upper: nan}
		}
		out[i] = p
	}
	return out
}
