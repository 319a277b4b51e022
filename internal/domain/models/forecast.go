package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Prediction is raw engine output for one date.
type Prediction struct {
	Date  time.Time
	Yhat  float64
	Lower float64
	Upper float64
}

// ForecastRow is caller-facing output. NaN means the engine gave no estimate.
type ForecastRow struct {
	Date  time.Time
	Point float64
	Lower float64
	Upper float64
}

func (r ForecastRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string   `json:"date"`
		Point *float64 `json:"prediction"`
		Lower *float64 `json:"lower_bound"`
		Upper *float64 `json:"upper_bound"`
	}{r.Date.Format(dayLayout), finiteOrNil(r.Point), finiteOrNil(r.Lower), finiteOrNil(r.Upper)})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// EvaluationResult holds hold-out accuracy. Nil fields mean not computable.
type EvaluationResult struct {
	RMSE     *float64 `json:"rmse"`
	R2       *float64 `json:"r2"`
	MAPE     *float64 `json:"mape"`
	TestRows int      `json:"test_rows"`
}

// R2Label renders R² for file names: two decimals or N/A.
func (e *EvaluationResult) R2Label() string {
	if e == nil {
		return "N/A"
	}
	return label(e.R2)
}

// MAPELabel renders MAPE for file names: two decimals or N/A.
func (e *EvaluationResult) MAPELabel() string {
	if e == nil {
		return "N/A"
	}
	return label(e.MAPE)
}

func label(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Float returns a pointer to v, or nil when v is not finite.
func Float(v float64) *float64 { return finiteOrNil(v) }
