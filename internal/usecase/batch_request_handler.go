package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	drepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	pkgkafka "github.com/SeekerKids/forecast-prophet-kp/pkg/kafka"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/queue"
)

// BatchRequestHandler turns "sales refreshed" events into queued batch runs.
//
// incoming message schema: {dataset, categories?, branches?, start?, end?, cutoff?, horizon_days?}
type BatchRequestHandler struct {
	topic   string
	queue   queue.QueueService
	metrics drepo.Metrics
}

func NewBatchRequestHandler(topic string, q queue.QueueService, metrics drepo.Metrics) *BatchRequestHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &BatchRequestHandler{topic: topic, queue: q, metrics: metrics}
}

func (h *BatchRequestHandler) Topic() string { return h.topic }

func (h *BatchRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.BatchRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode batch request: %w", err)
	}
	if err := h.queue.PublishMessage(ctx, BatchJobType, req); err != nil {
		h.metrics.RecordError("consumer_enqueue")
		return fmt.Errorf("enqueue batch request: %w", err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*BatchRequestHandler)(nil)
