package repository

import (
	"context"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
)

// SalesSource provides read-only access to daily sales aggregates.
//
// DailySales yields one point per trading day in [from, to], ascending, with no
// duplicate dates. Days on which the category did not sell carry an invalid
// quantity. An empty series is a valid result, not an error.
type SalesSource interface {
	DailySales(ctx context.Context, scope models.Scope, category string, from, to time.Time) (models.RawSalesSeries, error)
	// Categories lists categories with sales on every day of [from, to], largest total first.
	Categories(ctx context.Context, scope models.Scope, from, to time.Time) ([]string, error)
	Branches(ctx context.Context) ([]models.Branch, error)
}
