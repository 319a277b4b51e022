package usecase

import (
	"context"
	"fmt"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/diagnostics"
)

// ForecastReport is the single-item answer for the API and CLI.
type ForecastReport struct {
	Item        models.BatchItem         `json:"item"`
	Dataset     string                   `json:"dataset"`
	Cutoff      string                   `json:"cutoff"`
	HorizonDays int                      `json:"horizon_days"`
	TrainRows   int                      `json:"train_rows"`
	TestRows    int                      `json:"test_rows"`
	Evaluation  *models.EvaluationResult `json:"evaluation"`
	Forecast    []models.ForecastRow     `json:"forecast"`
	Full        []models.ForecastRow     `json:"full,omitempty"`
	Diagnostics []domsvc.DiagnosticEvent `json:"diagnostics"`
}

// InteractiveForecast runs one item on demand and surfaces its first failure.
type InteractiveForecast struct {
	pipeline *Pipeline
	calendar CalendarProvider
	defaults BatchDefaults
}

func NewInteractiveForecast(pipeline *Pipeline, cal CalendarProvider, defaults BatchDefaults) *InteractiveForecast {
	return &InteractiveForecast{pipeline: pipeline, calendar: cal, defaults: defaults}
}

func (f *InteractiveForecast) Forecast(ctx context.Context, req models.ForecastRequest) (*ForecastReport, error) {
	plan, err := PlanFromRequest(models.BatchRequest{
		Start:       req.Start,
		End:         req.End,
		Cutoff:      req.Cutoff,
		HorizonDays: req.HorizonDays,
	}, f.defaults)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	item := models.BatchItem{Category: req.Category, Branch: req.Branch}
	if item.Category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}

	rec := &diagnostics.Recorder{}
	run, err := f.pipeline.Run(ctx, item, plan.Run, f.calendar.Store(ctx), rec, req.Full)
	if err != nil {
		return nil, err
	}
	return &ForecastReport{
		Item:        item,
		Dataset:     plan.Run.Dataset,
		Cutoff:      plan.Run.Cutoff.Format("2006-01-02"),
		HorizonDays: plan.Run.HorizonDays,
		TrainRows:   run.TrainRows,
		TestRows:    run.TestRows,
		Evaluation:  run.Evaluation,
		Forecast:    run.Forecast,
		Full:        run.Full,
		Diagnostics: rec.Events(),
	}, nil
}
