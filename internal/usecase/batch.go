package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	drepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/diagnostics"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

var (
	ErrRunInProgress  = errors.New("a batch run for this dataset is already in progress")
	ErrInvalidRequest = errors.New("invalid request")
)

type OrchestratorConfig struct {
	ItemTimeout time.Duration
	Workers     int
	LockTTL     time.Duration
}

// BatchOrchestrator runs many items in isolation and reports one result per item.
type BatchOrchestrator struct {
	pipeline *Pipeline
	source   drepo.SalesSource
	calendar CalendarProvider
	exporter drepo.Exporter
	sinks    []drepo.ResultSink
	runs     drepo.RunStore
	locker   drepo.Locker
	metrics  drepo.Metrics
	cfg      OrchestratorConfig
	l        *applogger.Logger
}

// OrchestratorOption wires optional collaborators.
type OrchestratorOption func(*BatchOrchestrator)

func WithResultSinks(sinks ...drepo.ResultSink) OrchestratorOption {
	return func(o *BatchOrchestrator) { o.sinks = append(o.sinks, sinks...) }
}

func WithRunStore(store drepo.RunStore) OrchestratorOption {
	return func(o *BatchOrchestrator) { o.runs = store }
}

func WithLocker(locker drepo.Locker) OrchestratorOption {
	return func(o *BatchOrchestrator) { o.locker = locker }
}

func NewBatchOrchestrator(
	pipeline *Pipeline,
	source drepo.SalesSource,
	cal CalendarProvider,
	exporter drepo.Exporter,
	metrics drepo.Metrics,
	cfg OrchestratorConfig,
	l *applogger.Logger,
	opts ...OrchestratorOption,
) *BatchOrchestrator {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	o := &BatchOrchestrator{
		pipeline: pipeline,
		source:   source,
		calendar: cal,
		exporter: exporter,
		metrics:  metrics,
		cfg:      cfg,
		l:        l.With(applogger.String("component", "batch")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute plans, locks and runs a whole batch, then stores the run ledger.
func (o *BatchOrchestrator) Execute(ctx context.Context, plan BatchPlan) (models.RunSummary, error) {
	rc := plan.Run
	summary := models.RunSummary{RunID: rc.RunID, Dataset: rc.Dataset, StartedAt: time.Now()}

	if o.locker != nil {
		key := "batch:" + rc.Dataset
		ok, err := o.locker.TryLock(ctx, key, o.cfg.LockTTL)
		if err != nil {
			return summary, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return summary, fmt.Errorf("%w: %s", ErrRunInProgress, rc.Dataset)
		}
		defer func() {
			if err := o.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				o.l.Warn("release run lock failed", applogger.String("dataset", rc.Dataset), applogger.Error(err))
			}
		}()
	}

	items, err := plan.Items(ctx, o.source)
	if err != nil {
		o.metrics.RecordError("plan")
		return summary, err
	}
	o.l.Info("batch run started",
		applogger.String("run_id", rc.RunID),
		applogger.String("dataset", rc.Dataset),
		applogger.Int("items", len(items)),
		applogger.Date("start", rc.Start),
		applogger.Date("end", rc.End),
		applogger.Date("cutoff", rc.Cutoff),
		applogger.Int("horizon_days", rc.HorizonDays),
	)

	summary.Items = o.Run(ctx, items, rc)
	summary.FinishedAt = time.Now()

	counts := summary.Counts()
	o.l.Info("batch run finished",
		applogger.String("run_id", rc.RunID),
		applogger.Int("success", counts[models.OutcomeSuccess]),
		applogger.Int("skipped_no_data", counts[models.OutcomeSkippedNoData]),
		applogger.Int("skipped_prep_failed", counts[models.OutcomeSkippedPrepFailed]),
		applogger.Int("skipped_train_failed", counts[models.OutcomeSkippedTrainFailed]),
		applogger.Int("error", counts[models.OutcomeError]),
		applogger.Duration("elapsed_ms", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	if o.runs != nil {
		if err := o.runs.SaveRun(context.WithoutCancel(ctx), summary); err != nil {
			o.metrics.RecordError("run_store")
			o.l.Error("save run ledger failed", applogger.String("run_id", rc.RunID), applogger.Error(err))
		}
	}
	return summary, nil
}

// Run processes items and returns exactly one result per item, in input order.
// Item failures never abort the loop.
func (o *BatchOrchestrator) Run(ctx context.Context, items []models.BatchItem, rc models.RunContext) []models.BatchItemResult {
	results := make([]models.BatchItemResult, len(items))
	if len(items) == 0 {
		return results
	}

	var store *calendar.EventStore
	if o.calendar != nil {
		store = o.calendar.Store(ctx)
	}

	if o.cfg.Workers == 1 {
		for i, item := range items {
			results[i] = o.runItem(ctx, item, rc, store)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = o.runItem(gctx, item, rc, store)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *BatchOrchestrator) runItem(ctx context.Context, item models.BatchItem, rc models.RunContext, store *calendar.EventStore) (res models.BatchItemResult) {
	start := time.Now()
	res = models.BatchItemResult{Item: item, State: models.StateLoading}
	l := o.l.With(applogger.String("run_id", rc.RunID), applogger.String("item", item.String()))

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = models.OutcomeError
			res.Message = fmt.Sprintf("panic: %v", r)
			o.metrics.RecordError("panic")
			l.Error("item panicked", applogger.Any("panic", r), applogger.String("stack", string(debug.Stack())))
		}
		res.Duration = time.Since(start)
		o.metrics.RecordItem(res.Outcome, res.Duration)
		o.record(ctx, rc.RunID, res, l)
	}()

	itemCtx := ctx
	if o.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, o.cfg.ItemTimeout)
		defer cancel()
	}

	sink := diagnostics.NewLogSink(l)
	run, err := o.pipeline.Run(itemCtx, item, rc, store, sink, false)
	res.State = run.State
	res.Evaluation = run.Evaluation
	if err == nil && itemCtx.Err() != nil {
		err = itemCtx.Err()
	}
	if err == nil {
		res.Forecast = run.Forecast
		res.ForecastStart = run.Forecast[0].Date
		res.ForecastEnd = run.Forecast[len(run.Forecast)-1].Date
		if run.Evaluation != nil {
			o.metrics.RecordEvaluation(item.Category, run.Evaluation)
		}
		res.ArtifactPath, err = o.export(itemCtx, rc, item, run)
		if err == nil {
			res.State = models.StateExported
		}
	}

	res.Outcome = Classify(err)
	if err != nil && errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
		res.Outcome = models.OutcomeError
		err = fmt.Errorf("timed out after %s in %s: %w", o.cfg.ItemTimeout, res.State, err)
	}
	switch {
	case err == nil:
		l.Info("item forecast exported",
			applogger.String("path", res.ArtifactPath),
			applogger.String("r2", run.Evaluation.R2Label()),
			applogger.String("mape", run.Evaluation.MAPELabel()),
		)
	case errors.Is(err, models.ErrEmptyForecast) && res.Outcome == models.OutcomeSkippedNoData:
		res.Message = models.ErrEmptyForecast.Error()
		l.Warn("item skipped", applogger.String("outcome", string(res.Outcome)), applogger.Error(err))
	case res.Outcome == models.OutcomeError:
		res.Message = err.Error()
		o.metrics.RecordError(string(res.State))
		l.Error("item failed", applogger.String("state", string(res.State)), applogger.Error(err))
	default:
		res.Message = err.Error()
		l.Warn("item skipped", applogger.String("outcome", string(res.Outcome)), applogger.Error(err))
	}
	return res
}

func (o *BatchOrchestrator) export(ctx context.Context, rc models.RunContext, item models.BatchItem, run *ItemRun) (string, error) {
	if o.exporter == nil {
		return "", nil
	}
	path, err := o.exporter.Export(ctx, drepo.ExportRequest{
		Dataset:    rc.Dataset,
		Item:       item,
		Rows:       run.Forecast,
		Evaluation: run.Evaluation,
	})
	if err != nil && !errors.Is(err, models.ErrExportFailed) {
		err = fmt.Errorf("%w: %w", models.ErrExportFailed, err)
	}
	return path, err
}

func (o *BatchOrchestrator) record(ctx context.Context, runID string, res models.BatchItemResult, l *applogger.Logger) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range o.sinks {
		if err := s.Record(ctx, runID, res); err != nil {
			o.metrics.RecordError("sink_" + s.Name())
			l.Warn("result sink failed", applogger.String("sink", s.Name()), applogger.Error(err))
		}
	}
}
