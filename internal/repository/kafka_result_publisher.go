package repository

import (
	"context"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domrepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
)

// MessagePublisher is the subset of pkg/kafka.Producer the result publisher needs.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// ResultEvent is the wire form of one finished batch item.
type ResultEvent struct {
	RunID         string                   `json:"run_id"`
	Category      string                   `json:"category"`
	Branch        string                   `json:"branch,omitempty"`
	Outcome       models.Outcome           `json:"outcome"`
	State         models.ItemState         `json:"state"`
	Message       string                   `json:"message,omitempty"`
	Evaluation    *models.EvaluationResult `json:"evaluation,omitempty"`
	ForecastStart string                   `json:"forecast_start,omitempty"`
	ForecastEnd   string                   `json:"forecast_end,omitempty"`
	Artifact      string                   `json:"artifact,omitempty"`
	DurationMS    int64                    `json:"duration_ms"`
	EmittedAt     time.Time                `json:"emitted_at"`
}

// KafkaResultPublisher emits one event per item, keyed by item so a
// category's history stays on one partition.
type KafkaResultPublisher struct {
	producer MessagePublisher
	topic    string
	now      func() time.Time
}

var _ domrepo.ResultSink = (*KafkaResultPublisher)(nil)

func NewKafkaResultPublisher(producer MessagePublisher, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaResultPublisher) Name() string { return "kafka:" + p.topic }

func (p *KafkaResultPublisher) Record(ctx context.Context, runID string, res models.BatchItemResult) error {
	ev := ResultEvent{
		RunID:      runID,
		Category:   res.Item.Category,
		Branch:     res.Item.Branch,
		Outcome:    res.Outcome,
		State:      res.State,
		Message:    res.Message,
		Evaluation: res.Evaluation,
		Artifact:   res.ArtifactPath,
		DurationMS: res.Duration.Milliseconds(),
		EmittedAt:  p.now().UTC(),
	}
	if !res.ForecastStart.IsZero() {
		ev.ForecastStart = res.ForecastStart.Format(time.DateOnly)
		ev.ForecastEnd = res.ForecastEnd.Format(time.DateOnly)
	}
	return p.producer.Publish(ctx, p.topic, []byte(res.Item.String()), ev)
}
