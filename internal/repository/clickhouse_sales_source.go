package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domrepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// CHSalesSource implements SalesSource over a ClickHouse table of POS lines:
// (dataset, branch_id, pos_date, item_id, category, qty).
type CHSalesSource struct {
	db         *sql.DB
	table      string
	maxLineQty float64
	l          *applogger.Logger
}

func NewCHSalesSource(db *sql.DB, table string, maxLineQty float64, l *applogger.Logger) *CHSalesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSalesSource{db: db, table: table, maxLineQty: maxLineQty, l: l}
}

// CHSalesSchema is the DDL for the POS line table.
func CHSalesSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            dataset   LowCardinality(String),
            branch_id LowCardinality(String),
            pos_date  DateTime,
            item_id   String,
            category  LowCardinality(String),
            qty       Float64
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(pos_date)
        ORDER BY (dataset, branch_id, category, pos_date)
    `, table)}
}

// DailySales returns one row per trading day of the dataset. The left join
// keeps days on which the category did not sell; join_use_nulls turns their
// quantity into NULL.
func (s *CHSalesSource) DailySales(ctx context.Context, scope models.Scope, category string, from, to time.Time) (models.RawSalesSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT d.day, c.qty
        FROM (
            SELECT DISTINCT toDate(pos_date) AS day
            FROM %[1]s
            WHERE dataset = ? AND (? = '' OR branch_id = ?)
              AND toDate(pos_date) >= ? AND toDate(pos_date) <= ? AND qty <= ?
        ) AS d
        LEFT JOIN (
            SELECT toDate(pos_date) AS day, sum(qty) AS qty
            FROM %[1]s
            WHERE dataset = ? AND (? = '' OR branch_id = ?)
              AND toDate(pos_date) >= ? AND toDate(pos_date) <= ? AND qty <= ?
              AND category = ?
            GROUP BY day
        ) AS c ON d.day = c.day
        ORDER BY d.day ASC
        SETTINGS join_use_nulls = 1
    `
	q := fmt.Sprintf(qtpl, s.table)
	from, to = util.Day(from), util.Day(to)
	args := []interface{}{
		scope.Dataset, scope.Branch, scope.Branch, from, to, s.maxLineQty,
		scope.Dataset, scope.Branch, scope.Branch, from, to, s.maxLineQty, category,
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse daily_sales query error",
			applogger.String("table", s.table),
			applogger.String("category", category),
			applogger.String("branch", scope.Branch),
			applogger.Error(err),
		)
		return models.RawSalesSeries{}, fmt.Errorf("daily sales: %w", err)
	}
	defer rows.Close()

	series, err := scanDaily(rows, category, scope.Branch)
	if err != nil {
		s.l.Error("clickhouse daily_sales scan error",
			applogger.String("table", s.table),
			applogger.String("category", category),
			applogger.Error(err),
		)
		return models.RawSalesSeries{}, err
	}
	s.l.Debug("clickhouse daily_sales ok",
		applogger.String("category", category),
		applogger.String("branch", scope.Branch),
		applogger.Int("rows", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// Categories lists categories that sold on every day of [from, to], best sellers first.
func (s *CHSalesSource) Categories(ctx context.Context, scope models.Scope, from, to time.Time) ([]string, error) {
	const qtpl = `
        SELECT category
        FROM %s
        WHERE dataset = ? AND (? = '' OR branch_id = ?)
          AND toDate(pos_date) >= ? AND toDate(pos_date) <= ?
        GROUP BY category
        HAVING uniqExact(toDate(pos_date)) = ?
        ORDER BY sum(qty) DESC
    `
	from, to = util.Day(from), util.Day(to)
	days := util.DaysBetween(from, to) + 1
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), scope.Dataset, scope.Branch, scope.Branch, from, to, days)
	if err != nil {
		s.l.Error("clickhouse categories query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// Branches lists the distinct branch ids present in the table.
func (s *CHSalesSource) Branches(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT branch_id FROM %s WHERE branch_id != '' ORDER BY branch_id", s.table))
	if err != nil {
		return nil, fmt.Errorf("branches: %w", err)
	}
	defer rows.Close()
	ids, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	out := make([]models.Branch, len(ids))
	for i, id := range ids {
		out[i] = models.Branch{ID: id, Name: id}
	}
	return out, nil
}

var _ domrepo.SalesSource = (*CHSalesSource)(nil)
