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

// PGSalesSource implements SalesSource for stores that keep POS lines in
// PostgreSQL together with a branch master table.
type PGSalesSource struct {
	db          *sql.DB
	table       string
	branchTable string
	maxLineQty  float64
	l           *applogger.Logger
}

func NewPGSalesSource(db *sql.DB, table, branchTable string, maxLineQty float64, l *applogger.Logger) *PGSalesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &PGSalesSource{db: db, table: table, branchTable: branchTable, maxLineQty: maxLineQty, l: l}
}

// PGSalesSchema is the DDL for the POS line and branch tables.
func PGSalesSchema(table, branchTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id BIGSERIAL PRIMARY KEY,
            dataset TEXT NOT NULL,
            branch_id TEXT NOT NULL DEFAULT '',
            pos_date TIMESTAMP NOT NULL,
            item_id TEXT NOT NULL,
            category TEXT NOT NULL,
            qty DOUBLE PRECISION NOT NULL
        )`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_scope_idx ON %[1]s (dataset, branch_id, pos_date)`, table),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL
        )`, branchTable),
	}
}

func (s *PGSalesSource) DailySales(ctx context.Context, scope models.Scope, category string, from, to time.Time) (models.RawSalesSeries, error) {
	const qtpl = `
        WITH scoped AS (
            SELECT pos_date::date AS day, category, qty
            FROM %s
            WHERE dataset = $1 AND ($2::text = '' OR branch_id = $2)
              AND pos_date::date BETWEEN $3 AND $4 AND qty <= $5
        ),
        days AS (SELECT DISTINCT day FROM scoped),
        cat AS (
            SELECT day, SUM(qty)::float8 AS qty
            FROM scoped
            WHERE category = $6
            GROUP BY day
        )
        SELECT days.day, cat.qty
        FROM days LEFT JOIN cat ON cat.day = days.day
        ORDER BY days.day ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table),
		scope.Dataset, scope.Branch, util.Day(from), util.Day(to), s.maxLineQty, category)
	if err != nil {
		s.l.Error("postgres daily_sales query error",
			applogger.String("category", category),
			applogger.String("branch", scope.Branch),
			applogger.Error(err),
		)
		return models.RawSalesSeries{}, fmt.Errorf("daily sales: %w", err)
	}
	defer rows.Close()
	return scanDaily(rows, category, scope.Branch)
}

func (s *PGSalesSource) Categories(ctx context.Context, scope models.Scope, from, to time.Time) ([]string, error) {
	const qtpl = `
        SELECT category
        FROM %s
        WHERE dataset = $1 AND ($2::text = '' OR branch_id = $2)
          AND pos_date::date BETWEEN $3 AND $4
        GROUP BY category
        HAVING COUNT(DISTINCT pos_date::date) = $5
        ORDER BY SUM(qty) DESC
    `
	from, to = util.Day(from), util.Day(to)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table),
		scope.Dataset, scope.Branch, from, to, util.DaysBetween(from, to)+1)
	if err != nil {
		s.l.Error("postgres categories query error", applogger.Error(err))
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PGSalesSource) Branches(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, name FROM %s ORDER BY id", s.branchTable))
	if err != nil {
		return nil, fmt.Errorf("branches: %w", err)
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ domrepo.SalesSource = (*PGSalesSource)(nil)
