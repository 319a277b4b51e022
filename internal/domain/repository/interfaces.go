package repository

import (
	"context"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
)

// CalendarSource loads the three calendar tables independently so one broken
// sheet does not take the others down.
type CalendarSource interface {
	LoadHolidays(ctx context.Context) ([]models.CalendarEvent, error)
	LoadPeriods(ctx context.Context, kind models.PeriodKind) ([]models.DateRange, error)
}

// CalendarWriter persists an edited calendar.
type CalendarWriter interface {
	Save(ctx context.Context, snapshot models.CalendarSnapshot) error
}

// ExportRequest is everything an exporter needs for one item artifact.
type ExportRequest struct {
	Dataset    string
	Item       models.BatchItem
	Rows       []models.ForecastRow
	Evaluation *models.EvaluationResult
}

// Exporter writes one artifact per successfully forecast item and returns its location.
type Exporter interface {
	Export(ctx context.Context, req ExportRequest) (string, error)
}

// ResultSink receives item results as they complete. Failures are logged, never fatal.
type ResultSink interface {
	Name() string
	Record(ctx context.Context, runID string, res models.BatchItemResult) error
}

// RunStore persists the run ledger.
type RunStore interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, summary models.RunSummary) error
	Close() error
}

// Locker guards a dataset against overlapping batch runs.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordItem(outcome models.Outcome, d time.Duration)
	RecordStage(stage models.ItemState, seconds float64)
	RecordEvaluation(category string, eval *models.EvaluationResult)
	RecordError(kind string)
}
