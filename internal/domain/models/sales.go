package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// SalesPoint is one day of aggregated quantity. Valid is false when the source
// had no usable number for that day (NULL, blank cell, unparsable text).
type SalesPoint struct {
	Date     time.Time
	Quantity float64
	Valid    bool
}

// RawSalesSeries is the per-item input to feature building, ordered by date.
type RawSalesSeries struct {
	Category string
	Branch   string
	Points   []SalesPoint
}

func (s RawSalesSeries) Len() int { return len(s.Points) }

// Empty reports whether the source returned nothing at all.
func (s RawSalesSeries) Empty() bool { return len(s.Points) == 0 }

// Quantity builds a valid point.
func Quantity(date time.Time, qty float64) SalesPoint {
	return SalesPoint{Date: date, Quantity: qty, Valid: true}
}

// MissingQuantity builds a point for a trading day with no number for the item.
func MissingQuantity(date time.Time) SalesPoint {
	return SalesPoint{Date: date}
}

// ParseQuantity coerces text from a spreadsheet or CSV cell.
func ParseQuantity(date time.Time, raw string) SalesPoint {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingQuantity(date)
	}
	return Quantity(date, v)
}

type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Scope narrows a sales query. An empty Branch means all branches.
type Scope struct {
	Dataset string `json:"dataset"`
	Branch  string `json:"branch,omitempty"`
}
