package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/cache"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type countingSource struct {
	series     models.RawSalesSeries
	categories []string
	seriesHits int
	catHits    int
}

func (s *countingSource) DailySales(_ context.Context, _ models.Scope, _ string, _, _ time.Time) (models.RawSalesSeries, error) {
	s.seriesHits++
	return s.series, nil
}

func (s *countingSource) Categories(_ context.Context, _ models.Scope, _, _ time.Time) ([]string, error) {
	s.catHits++
	return s.categories, nil
}

func (s *countingSource) Branches(_ context.Context) ([]models.Branch, error) {
	return []models.Branch{{ID: "B01", Name: "B01"}}, nil
}

func newCachedSource(t *testing.T) (*countingSource, *CachedSalesSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	next := &countingSource{
		series: models.RawSalesSeries{Category: "MILK", Points: []models.SalesPoint{
			models.Quantity(util.MustDate("2025-01-01"), 3),
			models.MissingQuantity(util.MustDate("2025-01-02")),
			models.Quantity(util.MustDate("2025-01-03"), 0),
		}},
		categories: []string{"MILK", "TEA"},
	}
	src := NewCachedSalesSource(next, cache.NewRedisCacheFromClient(client, "test"), time.Hour, time.Hour, nil)
	return next, src, mr
}

func TestCachedSalesSourceServesRepeatReads(t *testing.T) {
	ctx := context.Background()
	next, src, _ := newCachedSource(t)
	scope := models.Scope{Dataset: "kp"}
	from, to := util.MustDate("2025-01-01"), util.MustDate("2025-01-03")

	first, err := src.DailySales(ctx, scope, "MILK", from, to)
	require.NoError(t, err)
	second, err := src.DailySales(ctx, scope, "MILK", from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, next.seriesHits)
	require.Len(t, second.Points, 3)
	assert.Equal(t, first.Points[0].Quantity, second.Points[0].Quantity)
	assert.False(t, second.Points[1].Valid, "missing days survive the cache")
	assert.True(t, second.Points[2].Valid, "zero sales stay distinct from missing")

	_, err = src.DailySales(ctx, models.Scope{Dataset: "kp", Branch: "B01"}, "MILK", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, next.seriesHits, "branch is part of the key")
}

func TestCachedSalesSourceCategoriesAndInvalidate(t *testing.T) {
	ctx := context.Background()
	next, src, _ := newCachedSource(t)
	scope := models.Scope{Dataset: "kp"}
	from, to := util.MustDate("2025-01-01"), util.MustDate("2025-01-31")

	for i := 0; i < 2; i++ {
		cats, err := src.Categories(ctx, scope, from, to)
		require.NoError(t, err)
		assert.Equal(t, []string{"MILK", "TEA"}, cats)
	}
	assert.Equal(t, 1, next.catHits)

	require.NoError(t, src.Invalidate(ctx))
	_, err := src.Categories(ctx, scope, from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, next.catHits)
}

func TestCachedSalesSourceFallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	next, src, mr := newCachedSource(t)
	mr.Close()

	series, err := src.DailySales(ctx, models.Scope{Dataset: "kp"}, "MILK",
		util.MustDate("2025-01-01"), util.MustDate("2025-01-03"))
	require.NoError(t, err)
	assert.Len(t, series.Points, 3)
	assert.Equal(t, 1, next.seriesHits)
}
