package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// scanDaily reads (day, nullable qty) rows into a series. Repeated days are
// collapsed so the series keeps one point per date.
func scanDaily(rows *sql.Rows, category, branch string) (models.RawSalesSeries, error) {
	series := models.RawSalesSeries{Category: category, Branch: branch}
	var last int64 = -1
	for rows.Next() {
		var (
			day time.Time
			qty sql.NullFloat64
		)
		if err := rows.Scan(&day, &qty); err != nil {
			return series, fmt.Errorf("scan daily sales: %w", err)
		}
		day = util.Day(day)
		n := util.DayNumber(day)
		if n == last {
			continue
		}
		last = n
		if qty.Valid {
			series.Points = append(series.Points, models.Quantity(day, qty.Float64))
		} else {
			series.Points = append(series.Points, models.MissingQuantity(day))
		}
	}
	if err := rows.Err(); err != nil {
		return series, fmt.Errorf("rows: %w", err)
	}
	return series, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	out := make([]string, 0, 64)
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if s.Valid && s.String != "" {
			out = append(out, s.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
