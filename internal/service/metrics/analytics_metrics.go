package metrics

import (
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	drepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	pkgmetrics "github.com/SeekerKids/forecast-prophet-kp/pkg/metrics"
)

// PipelineMetrics adapts the Prometheus recorder to the domain Metrics port.
type PipelineMetrics struct {
	rec *pkgmetrics.Recorder
}

var _ drepo.Metrics = (*PipelineMetrics)(nil)

func NewPipelineMetrics(rec *pkgmetrics.Recorder) *PipelineMetrics {
	return &PipelineMetrics{rec: rec}
}

func (m *PipelineMetrics) RecordItem(outcome models.Outcome, d time.Duration) {
	m.rec.RecordItem(string(outcome), d.Seconds())
}

func (m *PipelineMetrics) RecordStage(stage models.ItemState, seconds float64) {
	m.rec.RecordStage(string(stage), seconds)
}

// RecordEvaluation publishes accuracy gauges. A skipped evaluation clears them
// so dashboards do not show stale numbers.
func (m *PipelineMetrics) RecordEvaluation(category string, eval *models.EvaluationResult) {
	if eval == nil {
		m.rec.SetEvaluation(category, nil, nil)
		return
	}
	m.rec.SetEvaluation(category, eval.R2, eval.MAPE)
}

func (m *PipelineMetrics) RecordError(kind string) {
	m.rec.RecordError(kind)
}
