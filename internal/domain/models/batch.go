package models

import (
	"fmt"
	"time"
)

// ItemState is the furthest stage a batch item reached.
type ItemState string

const (
	StateLoading     ItemState = "loading"
	StatePreparing   ItemState = "preparing"
	StateTraining    ItemState = "training"
	StateForecasting ItemState = "forecasting"
	StateExported    ItemState = "exported"
)

// Outcome is the terminal classification of a batch item.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeSkippedNoData      Outcome = "skipped_no_data"
	OutcomeSkippedPrepFailed  Outcome = "skipped_prep_failed"
	OutcomeSkippedTrainFailed Outcome = "skipped_train_failed"
	OutcomeError              Outcome = "error"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{
	OutcomeSuccess,
	OutcomeSkippedNoData,
	OutcomeSkippedPrepFailed,
	OutcomeSkippedTrainFailed,
	OutcomeError,
}

// BatchItem is one independent forecasting task.
type BatchItem struct {
	Category string `json:"category"`
	Branch   string `json:"branch,omitempty"`
}

func (i BatchItem) String() string {
	if i.Branch == "" {
		return i.Category
	}
	return fmt.Sprintf("%s@%s", i.Category, i.Branch)
}

// RunContext is shared, read-only input for every item of a run.
type RunContext struct {
	RunID       string
	Dataset     string
	Start       time.Time
	End         time.Time
	Cutoff      time.Time
	HorizonDays int
}

func (rc RunContext) Validate() error {
	if rc.Start.IsZero() || rc.End.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if rc.End.Before(rc.Start) {
		return fmt.Errorf("end %s is before start %s", rc.End.Format(dayLayout), rc.Start.Format(dayLayout))
	}
	if rc.Cutoff.IsZero() {
		return fmt.Errorf("cutoff date is required")
	}
	if rc.HorizonDays < 1 {
		return fmt.Errorf("horizon must be at least one day, got %d", rc.HorizonDays)
	}
	return nil
}

// BatchItemResult is the summary row for one item.
type BatchItemResult struct {
	Item          BatchItem         `json:"item"`
	Outcome       Outcome           `json:"outcome"`
	Message       string            `json:"message,omitempty"`
	State         ItemState         `json:"state"`
	Evaluation    *EvaluationResult `json:"evaluation,omitempty"`
	Forecast      []ForecastRow     `json:"forecast,omitempty"`
	ForecastStart time.Time         `json:"forecast_start,omitempty"`
	ForecastEnd   time.Time         `json:"forecast_end,omitempty"`
	ArtifactPath  string            `json:"artifact_path,omitempty"`
	Duration      time.Duration     `json:"duration"`
}

// RunSummary is what a completed batch run reports.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	Dataset    string            `json:"dataset"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Items      []BatchItemResult `json:"items"`
}

// Counts tallies outcomes.
func (s RunSummary) Counts() map[Outcome]int {
	out := make(map[Outcome]int, len(Outcomes))
	for _, r := range s.Items {
		out[r.Outcome]++
	}
	return out
}
