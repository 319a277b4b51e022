package service

import (
	"context"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
)

// Model is an opaque fitted-model handle owned by the pipeline for one item.
type Model interface {
	ID() string
}

// ForecastEngine is the black-box additive time-series capability.
//
// Fit trains on rows using Y as the target, the named regressor columns as
// exogenous inputs and holidays as zero-width holiday effects. Predict returns
// one Prediction per input row date.
type ForecastEngine interface {
	Fit(ctx context.Context, rows []models.FeatureRow, regressors []string, holidays []models.CalendarEvent) (Model, error)
	Predict(ctx context.Context, m Model, rows []models.FeatureRow) ([]models.Prediction, error)
	// Release discards server-side state for m. Safe to call more than once.
	Release(ctx context.Context, m Model) error
}

// DiagnosticEvent is a structured note emitted by pipeline stages.
type DiagnosticEvent struct {
	Stage   string                 `json:"stage"`
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// DiagnosticsSink receives stage events. Presentation decides what to render.
type DiagnosticsSink interface {
	Emit(ev DiagnosticEvent)
}
