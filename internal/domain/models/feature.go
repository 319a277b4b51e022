package models

import (
	"math"
	"time"
)

// Regressor column names handed to the forecasting engine.
const (
	RegIsHoliday = "IsHoliday"
	RegIsRamadan = "IsRamadan"
	RegIsUjian   = "IsUjian"
	RegDayOfWeek = "day_of_week"
	RegMonth     = "month"
	RegYear      = "year"
	RegWeekend   = "weekend"
	RegLibur     = "libur"
)

// ModelRegressors is the exogenous set used for fitting. IsHoliday is absent:
// holidays reach the model only through the holiday-effect table.
var ModelRegressors = []string{
	RegIsRamadan,
	RegIsUjian,
	RegDayOfWeek,
	RegMonth,
	RegYear,
	RegWeekend,
	RegLibur,
}

// FeatureRow is one modelling row. Y is NaN on future rows.
type FeatureRow struct {
	Date      time.Time
	Y         float64
	IsHoliday bool
	IsRamadan bool
	IsUjian   bool
	Weekend   bool
	Libur     bool
	DayOfWeek int // Monday=0 ... Sunday=6
	Month     int
	Year      int
}

func (r FeatureRow) HasTarget() bool { return !math.IsNaN(r.Y) }

// Regressor returns the numeric value of a named column.
func (r FeatureRow) Regressor(name string) (float64, bool) {
	switch name {
	case RegIsHoliday:
		return boolFloat(r.IsHoliday), true
	case RegIsRamadan:
		return boolFloat(r.IsRamadan), true
	case RegIsUjian:
		return boolFloat(r.IsUjian), true
	case RegDayOfWeek:
		return float64(r.DayOfWeek), true
	case RegMonth:
		return float64(r.Month), true
	case RegYear:
		return float64(r.Year), true
	case RegWeekend:
		return boolFloat(r.Weekend), true
	case RegLibur:
		return boolFloat(r.Libur), true
	}
	return 0, false
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
