package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	drepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/diagnostics"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/evaluation"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/features"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/forecast"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const releaseTimeout = 10 * time.Second

// CalendarProvider hands out the current immutable calendar.
type CalendarProvider interface {
	Store(ctx context.Context) *calendar.EventStore
}

// ItemRun is what one pass of the pipeline produced. State is the furthest
// stage reached, also on failure.
type ItemRun struct {
	State      models.ItemState
	Evaluation *models.EvaluationResult
	Forecast   []models.ForecastRow // filtered to >= cutoff
	Full       []models.ForecastRow // whole axis, only when requested
	TrainRows  int
	TestRows   int
}

// Pipeline runs one item through load, prepare, train and forecast.
type Pipeline struct {
	source     drepo.SalesSource
	engine     domsvc.ForecastEngine
	builder    *features.Builder
	evaluator  *evaluation.SplitEvaluator
	forecaster *forecast.Forecaster
	metrics    drepo.Metrics
	l          *applogger.Logger
}

func NewPipeline(source drepo.SalesSource, engine domsvc.ForecastEngine, metrics drepo.Metrics, l *applogger.Logger) *Pipeline {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Pipeline{
		source:     source,
		engine:     engine,
		builder:    features.NewBuilder(),
		evaluator:  evaluation.NewSplitEvaluator(engine),
		forecaster: forecast.NewForecaster(engine),
		metrics:    metrics,
		l:          l.With(applogger.String("component", "pipeline")),
	}
}

// Run executes one item. The returned ItemRun is never nil. The fitted model
// is released before Run returns.
func (p *Pipeline) Run(ctx context.Context, item models.BatchItem, rc models.RunContext, store *calendar.EventStore, sink domsvc.DiagnosticsSink, full bool) (*ItemRun, error) {
	run := &ItemRun{State: models.StateLoading}
	sink = diagnostics.Or(sink)
	if store == nil {
		store = calendar.Empty()
	}

	stageStart := time.Now()
	mark := func(next models.ItemState) {
		p.metrics.RecordStage(run.State, time.Since(stageStart).Seconds())
		run.State = next
		stageStart = time.Now()
	}

	series, err := p.source.DailySales(ctx, models.Scope{Dataset: rc.Dataset, Branch: item.Branch}, item.Category, rc.Start, rc.End)
	if err != nil {
		return run, fmt.Errorf("load sales for %s: %w", item, err)
	}
	if series.Empty() {
		return run, fmt.Errorf("%w: no sales for %s in %s..%s", models.ErrDataUnavailable, item,
			rc.Start.Format(util.DateLayout), rc.End.Format(util.DateLayout))
	}
	mark(models.StatePreparing)

	rows, err := p.builder.Build(series, store)
	if err != nil {
		return run, err
	}
	sink.Emit(domsvc.DiagnosticEvent{
		Stage:   string(models.StatePreparing),
		Kind:    diagnostics.KindInfo,
		Message: "feature rows built",
		Fields:  map[string]interface{}{"raw": series.Len(), "rows": len(rows)},
	})
	mark(models.StateTraining)

	res, err := p.evaluator.Evaluate(ctx, rows, store.HolidayTable(), rc.Cutoff, sink)
	if res != nil && res.Model != nil {
		defer p.release(ctx, res.Model.Model)
	}
	if err != nil {
		return run, err
	}
	run.Evaluation = res.Evaluation
	run.TrainRows = res.Model.TrainRows
	run.TestRows = len(res.Test)
	mark(models.StateForecasting)

	all, err := p.forecaster.ForecastAll(ctx, res.Model, rc.HorizonDays, store, sink)
	if err != nil {
		return run, err
	}
	run.Forecast = forecast.FilterFrom(all, rc.Cutoff)
	if full {
		run.Full = all
	}
	p.metrics.RecordStage(run.State, time.Since(stageStart).Seconds())
	if len(run.Forecast) == 0 {
		return run, fmt.Errorf("%w: nothing on or after %s", models.ErrEmptyForecast, rc.Cutoff.Format(util.DateLayout))
	}
	return run, nil
}

// release frees engine state even when the item context is already done.
func (p *Pipeline) release(ctx context.Context, m domsvc.Model) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := p.engine.Release(ctx, m); err != nil {
		p.l.Warn("release model failed", applogger.String("model", m.ID()), applogger.Error(err))
	}
}

// Classify maps an item error to its terminal outcome.
func Classify(err error) models.Outcome {
	switch {
	case err == nil:
		return models.OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.OutcomeError
	case errors.Is(err, models.ErrDataUnavailable), errors.Is(err, models.ErrEmptyForecast):
		return models.OutcomeSkippedNoData
	case errors.Is(err, models.ErrPreparationFailed):
		return models.OutcomeSkippedPrepFailed
	case errors.Is(err, models.ErrEmptyTrainingSet), errors.Is(err, models.ErrTrainingFailed):
		return models.OutcomeSkippedTrainFailed
	default:
		return models.OutcomeError
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordItem(models.Outcome, time.Duration) {}

func (nopMetrics) RecordStage(models.ItemState, float64) {}

func (nopMetrics) RecordEvaluation(string, *models.EvaluationResult) {}

func (nopMetrics) RecordError(string) {}
