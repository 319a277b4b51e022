package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the batch pipeline collectors.
type Recorder struct {
	itemsTotal    *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	mape          *prometheus.GaugeVec
	r2            *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		itemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salescast_batch_items_total",
				Help: "Batch items by terminal outcome",
			},
			[]string{"outcome"},
		),
		itemDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salescast_batch_item_duration_seconds",
				Help:    "Wall time per batch item",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salescast_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salescast_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		mape: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "salescast_evaluation_mape",
				Help: "Latest hold-out MAPE per category",
			},
			[]string{"category"},
		),
		r2: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "salescast_evaluation_r2",
				Help: "Latest hold-out R2 per category",
			},
			[]string{"category"},
		),
	}
}

func (r *Recorder) RecordItem(outcome string, seconds float64) {
	r.itemsTotal.WithLabelValues(outcome).Inc()
	r.itemDuration.WithLabelValues(outcome).Observe(seconds)
}

func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetEvaluation stores the latest accuracy for category. Nil values drop the series.
func (r *Recorder) SetEvaluation(category string, r2, mape *float64) {
	setOrDelete(r.r2, category, r2)
	setOrDelete(r.mape, category, mape)
}

func setOrDelete(g *prometheus.GaugeVec, label string, v *float64) {
	if v == nil {
		g.DeleteLabelValues(label)
		return
	}
	g.WithLabelValues(label).Set(*v)
}
