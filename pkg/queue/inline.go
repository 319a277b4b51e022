package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

// InlineQueue runs jobs in-process when no Redis is configured. Messages are
// not persisted and there are no retries.
type InlineQueue struct {
	logger *logger.Logger
	jobs   map[string]Job
	sem    chan struct{}

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewInlineQueue(lgr *logger.Logger, workers int) *InlineQueue {
	if workers <= 0 {
		workers = 1
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &InlineQueue{
		logger: lgr.With(logger.String("component", "queue")),
		jobs:   make(map[string]Job),
		sem:    make(chan struct{}, workers),
	}
}

func (q *InlineQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	q.jobs[job.Type()] = job
}

func (q *InlineQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	q.running = true
	q.logger.Info("inline queue started", logger.Int("workers", cap(q.sem)))
	return nil
}

// Stop cancels running jobs and waits for them or ctx expiry.
func (q *InlineQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// PublishMessage hands the payload to its job on a background goroutine. At
// most `workers` jobs run at once; the rest wait for a slot.
func (q *InlineQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("queue is not running")
	}
	job, ok := q.jobs[msgType]
	if !ok {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.NewString()
	ctx := q.ctx
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case q.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-q.sem }()
		if err := job.Handle(ctx, json.RawMessage(raw)); err != nil {
			q.logger.Error("inline job failed",
				logger.String("id", id),
				logger.String("type", msgType),
				logger.Error(err))
		}
	}()
	return nil
}
