package analytics

import (
	"context"
	"sync"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
)

// Serialized wraps an engine that is not safe for concurrent use so parallel
// batch workers take turns on it.
type Serialized struct {
	mu   sync.Mutex
	next domsvc.ForecastEngine
}

func Serialize(next domsvc.ForecastEngine) *Serialized {
	return &Serialized{next: next}
}

func (s *Serialized) Fit(ctx context.Context, rows []models.FeatureRow, regressors []string, holidays []models.CalendarEvent) (domsvc.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Fit(ctx, rows, regressors, holidays)
}

func (s *Serialized) Predict(ctx context.Context, m domsvc.Model, rows []models.FeatureRow) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Predict(ctx, m, rows)
}

func (s *Serialized) Release(ctx context.Context, m domsvc.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Release(ctx, m)
}

var _ domsvc.ForecastEngine = (*Serialized)(nil)
