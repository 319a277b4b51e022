package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domrepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/cache"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const (
	seriesKeyPrefix     = "series"
	categoriesKeyPrefix = "categories"
)

// CachedSalesSource memoises warehouse reads. Re-running a batch for the same
// range hits the cache instead of re-aggregating POS lines. Cache failures
// fall through to the source.
type CachedSalesSource struct {
	next          domrepo.SalesSource
	cache         cache.Service
	seriesTTL     time.Duration
	categoriesTTL time.Duration
	l             *applogger.Logger
}

func NewCachedSalesSource(next domrepo.SalesSource, c cache.Service, seriesTTL, categoriesTTL time.Duration, l *applogger.Logger) *CachedSalesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedSalesSource{next: next, cache: c, seriesTTL: seriesTTL, categoriesTTL: categoriesTTL, l: l}
}

// cachedPoint keeps missing quantities distinguishable from zero in JSON.
type cachedPoint struct {
	Date string   `json:"d"`
	Qty  *float64 `json:"q"`
}

func (s *CachedSalesSource) DailySales(ctx context.Context, scope models.Scope, category string, from, to time.Time) (models.RawSalesSeries, error) {
	key := cache.GenerateKeyWithParams(seriesKeyPrefix, cache.HashKey(scope.Dataset), cache.HashKey(scope.Branch),
		cache.HashKey(category), util.Compact(from), util.Compact(to))

	var cached []cachedPoint
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return fromCached(category, scope.Branch, cached), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("series cache read failed", applogger.String("category", category), applogger.Error(err))
	}

	series, err := s.next.DailySales(ctx, scope, category, from, to)
	if err != nil {
		return series, err
	}
	if err := s.cache.Set(ctx, key, toCached(series), s.seriesTTL); err != nil {
		s.l.Warn("series cache write failed", applogger.String("category", category), applogger.Error(err))
	}
	return series, nil
}

func (s *CachedSalesSource) Categories(ctx context.Context, scope models.Scope, from, to time.Time) ([]string, error) {
	key := cache.GenerateKeyWithParams(categoriesKeyPrefix, cache.HashKey(scope.Dataset), cache.HashKey(scope.Branch),
		util.Compact(from), util.Compact(to))

	var cats []string
	err := s.cache.Get(ctx, key, &cats)
	if err == nil {
		return cats, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("categories cache read failed", applogger.Error(err))
	}

	cats, err = s.next.Categories(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, cats, s.categoriesTTL); err != nil {
		s.l.Warn("categories cache write failed", applogger.Error(err))
	}
	return cats, nil
}

// Branches are cheap and change rarely; they are not cached.
func (s *CachedSalesSource) Branches(ctx context.Context) ([]models.Branch, error) {
	return s.next.Branches(ctx)
}

// Invalidate drops every cached series and category list.
func (s *CachedSalesSource) Invalidate(ctx context.Context) error {
	if err := s.cache.DeleteByPattern(ctx, cache.BuildPattern(seriesKeyPrefix+":")); err != nil {
		return err
	}
	return s.cache.DeleteByPattern(ctx, cache.BuildPattern(categoriesKeyPrefix+":"))
}

func toCached(series models.RawSalesSeries) []cachedPoint {
	out := make([]cachedPoint, len(series.Points))
	for i, p := range series.Points {
		out[i].Date = p.Date.Format(util.DateLayout)
		if p.Valid && !math.IsNaN(p.Quantity) && !math.IsInf(p.Quantity, 0) {
			q := p.Quantity
			out[i].Qty = &q
		}
	}
	return out
}

func fromCached(category, branch string, pts []cachedPoint) models.RawSalesSeries {
	series := models.RawSalesSeries{Category: category, Branch: branch, Points: make([]models.SalesPoint, 0, len(pts))}
	for _, p := range pts {
		d, ok := util.ParseDate(p.Date)
		if !ok {
			continue
		}
		if p.Qty == nil {
			series.Points = append(series.Points, models.MissingQuantity(d))
		} else {
			series.Points = append(series.Points, models.Quantity(d, *p.Qty))
		}
	}
	return series
}

var _ domrepo.SalesSource = (*CachedSalesSource)(nil)
