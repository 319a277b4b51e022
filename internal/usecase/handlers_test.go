package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
)

type fakeQueue struct {
	msgType string
	payload interface{}
	err     error
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType, q.payload = msgType, payload
	return q.err
}

func TestBatchRequestHandlerEnqueues(t *testing.T) {
	q := &fakeQueue{}
	h := NewBatchRequestHandler("sales.refreshed", q, nil)
	assert.Equal(t, "sales.refreshed", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"dataset":"Penjualan Dummy","categories":["SNACK"]}`)))
	assert.Equal(t, BatchJobType, q.msgType)
	assert.Equal(t, models.BatchRequest{Dataset: "Penjualan Dummy", Categories: []string{"SNACK"}}, q.payload)

	assert.Error(t, h.Handle(context.Background(), []byte(`{not json`)))

	q.err = errors.New("redis down")
	assert.Error(t, h.Handle(context.Background(), []byte(`{}`)))
}

func TestBatchJobRunsPlan(t *testing.T) {
	o, _, exp, _ := newFixture(&flatEngine{}, 1)
	job := NewBatchJob(o, BatchDefaults{
		Dataset:     "Penjualan Dummy",
		Start:       runContext().Start,
		End:         runContext().End,
		Cutoff:      runContext().Cutoff,
		HorizonDays: 30,
	}, nil)
	assert.Equal(t, BatchJobType, job.Type())

	payload := map[string]interface{}{"categories": []interface{}{"A"}}
	raw, err := jsonRaw(payload)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), raw))
	assert.Len(t, exp.reqs, 1)

	// invalid requests are dropped rather than retried
	require.NoError(t, job.Handle(context.Background(), models.BatchRequest{Start: "bogus"}))
}

func jsonRaw(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	return json.RawMessage(b), err
}
