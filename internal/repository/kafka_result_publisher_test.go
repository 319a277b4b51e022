package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type captured struct {
	topic string
	key   string
	value []byte
}

type capturePublisher struct{ msgs []captured }

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.msgs = append(c.msgs, captured{topic: topic, key: string(key), value: b})
	return nil
}

func TestKafkaResultPublisherRecord(t *testing.T) {
	pub := &capturePublisher{}
	p := NewKafkaResultPublisher(pub, "forecast.results")
	p.now = func() time.Time { return time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, "kafka:forecast.results", p.Name())

	err := p.Record(context.Background(), "run-1", models.BatchItemResult{
		Item:          models.BatchItem{Category: "MILK", Branch: "B01"},
		Outcome:       models.OutcomeSuccess,
		State:         models.StateExported,
		Evaluation:    &models.EvaluationResult{R2: models.Float(0.9), TestRows: 10},
		ForecastStart: util.MustDate("2025-01-01"),
		ForecastEnd:   util.MustDate("2025-01-31"),
		ArtifactPath:  "out/kp/B01/MILK.xlsx",
		Duration:      1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "forecast.results", msg.topic)
	assert.Equal(t, "MILK@B01", msg.key)

	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.value, &ev))
	assert.Equal(t, "run-1", ev["run_id"])
	assert.Equal(t, "success", ev["outcome"])
	assert.Equal(t, "2025-01-01", ev["forecast_start"])
	assert.Equal(t, "2025-01-31", ev["forecast_end"])
	assert.EqualValues(t, 1500, ev["duration_ms"])
}

func TestKafkaResultPublisherSkippedItem(t *testing.T) {
	pub := &capturePublisher{}
	p := NewKafkaResultPublisher(pub, "forecast.results")

	require.NoError(t, p.Record(context.Background(), "run-2", models.BatchItemResult{
		Item:    models.BatchItem{Category: "TEA"},
		Outcome: models.OutcomeSkippedNoData,
		State:   models.StateLoading,
		Message: "data unavailable",
	}))

	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.msgs[0].value, &ev))
	assert.Equal(t, "TEA", pub.msgs[0].key)
	assert.NotContains(t, ev, "forecast_start")
	assert.NotContains(t, ev, "evaluation")
}
