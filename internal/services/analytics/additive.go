package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const (
	yearPeriod = 365.25
	weekPeriod = 7.0
)

// AdditiveOptions tunes the in-process engine.
type AdditiveOptions struct {
	YearlyOrder   int     // Fourier pairs for yearly seasonality
	WeeklyOrder   int     // Fourier pairs for weekly seasonality
	Ridge         float64 // L2 penalty on every coefficient except the intercept
	IntervalWidth float64 // central coverage of the prediction interval
}

func DefaultAdditiveOptions() AdditiveOptions {
	return AdditiveOptions{YearlyOrder: 10, WeeklyOrder: 3, Ridge: 1.0, IntervalWidth: 0.8}
}

// AdditiveEngine is a deterministic in-process stand-in for a Prophet service:
// linear trend + Fourier yearly and weekly seasonality + standardised
// regressors + one dummy per holiday label, fitted by ridge least squares.
// Intervals are yhat ± z·σ of the training residuals.
//
// Fit and Predict keep no shared mutable state, so the engine is reentrant.
type AdditiveEngine struct {
	opts AdditiveOptions
	seq  atomic.Int64
}

func NewAdditiveEngine(opts AdditiveOptions) *AdditiveEngine {
	def := DefaultAdditiveOptions()
	if opts.YearlyOrder < 0 {
		opts.YearlyOrder = def.YearlyOrder
	}
	if opts.WeeklyOrder < 0 {
		opts.WeeklyOrder = def.WeeklyOrder
	}
	if opts.Ridge <= 0 {
		opts.Ridge = def.Ridge
	}
	if opts.IntervalWidth <= 0 || opts.IntervalWidth >= 1 {
		opts.IntervalWidth = def.IntervalWidth
	}
	return &AdditiveEngine{opts: opts}
}

type additiveModel struct {
	id         string
	regressors []string
	mean, sd   []float64 // per regressor
	labels     []string
	holidayOf  map[int64][]int // day -> label indexes
	t0, tSpan  float64
	yScale     float64
	beta       []float64
	halfWidth  float64 // z·σ in original units
	opts       AdditiveOptions
}

func (m *additiveModel) ID() string { return m.id }

// minFitRows is the smallest training set the engine accepts.
const minFitRows = 2

func (e *AdditiveEngine) Fit(ctx context.Context, rows []models.FeatureRow, regressors []string, holidays []models.CalendarEvent) (domsvc.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	train := make([]models.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.HasTarget() {
			train = append(train, r)
		}
	}
	if len(train) < minFitRows {
		return nil, fmt.Errorf("need at least %d rows with a target, got %d", minFitRows, len(train))
	}
	sort.Slice(train, func(i, j int) bool { return train[i].Date.Before(train[j].Date) })

	m := &additiveModel{
		id:         fmt.Sprintf("additive-%d", e.seq.Add(1)),
		regressors: append([]string(nil), regressors...),
		mean:       make([]float64, len(regressors)),
		sd:         make([]float64, len(regressors)),
		holidayOf:  make(map[int64][]int),
		opts:       e.opts,
	}

	// regressor standardisation
	col := make([]float64, len(train))
	for j, name := range regressors {
		for i, r := range train {
			v, ok := r.Regressor(name)
			if !ok {
				return nil, fmt.Errorf("unknown regressor %q", name)
			}
			col[i] = v
		}
		mu, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.mean[j], m.sd[j] = mu, sd
	}

	// holiday labels, in first-seen order of the date-sorted table
	labelIdx := make(map[string]int)
	for _, h := range holidays {
		label := h.Label
		if label == "" {
			label = "holiday"
		}
		idx, ok := labelIdx[label]
		if !ok {
			idx = len(m.labels)
			labelIdx[label] = idx
			m.labels = append(m.labels, label)
		}
		day := util.DayNumber(h.Date)
		m.holidayOf[day] = appendUnique(m.holidayOf[day], idx)
	}

	m.t0 = float64(util.DayNumber(train[0].Date))
	m.tSpan = math.Max(1, float64(util.DayNumber(train[len(train)-1].Date))-m.t0)

	m.yScale = 0
	for _, r := range train {
		m.yScale = math.Max(m.yScale, math.Abs(r.Y))
	}
	if m.yScale == 0 {
		m.yScale = 1
	}

	n, p := len(train), m.width()
	a := mat.NewDense(n+p-1, p, nil)
	b := mat.NewVecDense(n+p-1, nil)
	for i, r := range train {
		a.SetRow(i, m.design(r))
		b.SetVec(i, r.Y/m.yScale)
	}
	// ridge rows: sqrt(λ)·e_j for every non-intercept column
	penalty := math.Sqrt(e.opts.Ridge)
	for j := 1; j < p; j++ {
		a.Set(n+j-1, j, penalty)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve: %w", err)
		}
	}
	m.beta = make([]float64, p)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
		if math.IsNaN(m.beta[j]) {
			return nil, errors.New("solve: coefficients are not finite")
		}
	}

	resid := make([]float64, n)
	for i, r := range train {
		resid[i] = r.Y - m.point(r)
	}
	sigma := stat.StdDev(resid, nil)
	if math.IsNaN(sigma) {
		sigma = 0
	}
	z := distuv.UnitNormal.Quantile(0.5 + e.opts.IntervalWidth/2)
	m.halfWidth = z * sigma

	return m, nil
}

func (e *AdditiveEngine) Predict(ctx context.Context, model domsvc.Model, rows []models.FeatureRow) ([]models.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := model.(*additiveModel)
	if !ok {
		return nil, fmt.Errorf("model %T was not fitted by this engine", model)
	}

	out := make([]models.Prediction, len(rows))
	for i, r := range rows {
		for _, name := range m.regressors {
			if _, ok := r.Regressor(name); !ok {
				return nil, fmt.Errorf("unknown regressor %q", name)
			}
		}
		yhat := m.point(r)
		out[i] = models.Prediction{
			Date:  r.Date,
			Yhat:  yhat,
			Lower: yhat - m.halfWidth,
			Upper: yhat + m.halfWidth,
		}
	}
	return out, nil
}

// Release is a no-op; in-process models are garbage collected.
func (e *AdditiveEngine) Release(context.Context, domsvc.Model) error { return nil }

func (m *additiveModel) width() int {
	return 2 + 2*m.opts.YearlyOrder + 2*m.opts.WeeklyOrder + len(m.regressors) + len(m.labels)
}

// design returns the feature vector for r: intercept, trend, seasonality,
// regressors, holiday dummies.
func (m *additiveModel) design(r models.FeatureRow) []float64 {
	x := make([]float64, 0, m.width())
	day := float64(util.DayNumber(r.Date))

	x = append(x, 1, (day-m.t0)/m.tSpan)
	x = fourier(x, day, yearPeriod, m.opts.YearlyOrder)
	x = fourier(x, day, weekPeriod, m.opts.WeeklyOrder)
	for j, name := range m.regressors {
		v, _ := r.Regressor(name)
		x = append(x, (v-m.mean[j])/m.sd[j])
	}
	dummies := make([]float64, len(m.labels))
	for _, idx := range m.holidayOf[util.DayNumber(r.Date)] {
		dummies[idx] = 1
	}
	return append(x, dummies...)
}

func (m *additiveModel) point(r models.FeatureRow) float64 {
	x := m.design(r)
	var s float64
	for j, v := range x {
		s += v * m.beta[j]
	}
	return s * m.yScale
}

func fourier(x []float64, day, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * day / period
		x = append(x, math.Sin(arg), math.Cos(arg))
	}
	return x
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

var _ domsvc.ForecastEngine = (*AdditiveEngine)(nil)
