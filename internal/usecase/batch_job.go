package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/queue"
)

// BatchJobType is the queue message type for asynchronous batch runs.
const BatchJobType = "batch.run"

// BatchJob executes queued batch requests.
type BatchJob struct {
	orchestrator *BatchOrchestrator
	defaults     BatchDefaults
	l            *applogger.Logger
}

func NewBatchJob(orchestrator *BatchOrchestrator, defaults BatchDefaults, l *applogger.Logger) *BatchJob {
	if l == nil {
		l = applogger.Nop()
	}
	return &BatchJob{orchestrator: orchestrator, defaults: defaults, l: l}
}

func (j *BatchJob) Name() string { return "batch-forecast" }

func (j *BatchJob) Type() string { return BatchJobType }

func (j *BatchJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.BatchRequest](payload)
	if err != nil {
		return err
	}
	plan, err := PlanFromRequest(*req, j.defaults)
	if err != nil {
		// an invalid request will not get better on retry
		j.l.Error("discarding invalid batch job", applogger.Error(err))
		return nil
	}
	summary, err := j.orchestrator.Execute(ctx, plan)
	if errors.Is(err, ErrRunInProgress) {
		j.l.Warn("batch job skipped", applogger.String("dataset", plan.Run.Dataset), applogger.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("batch job %s: %w", plan.Run.RunID, err)
	}
	j.l.Info("batch job done", applogger.String("run_id", summary.RunID), applogger.Int("items", len(summary.Items)))
	return nil
}

var _ queue.Job = (*BatchJob)(nil)
