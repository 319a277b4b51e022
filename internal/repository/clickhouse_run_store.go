package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domrepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

const runInsertChunk = 2000

const runColumns = "run_id, dataset, category, branch, outcome, state, message, r2, mape, rmse, artifact, duration_ms, started_at, finished_at"

// ClickHouseRunStore keeps one ledger row per batch item.
type ClickHouseRunStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.RunStore = (*ClickHouseRunStore)(nil)

func NewClickHouseRunStore(db *sql.DB, table string, l *applogger.Logger) *ClickHouseRunStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseRunStore{db: db, table: table, l: l}
}

// CHRunSchema is the DDL for the run ledger.
func CHRunSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id      String,
            dataset     LowCardinality(String),
            category    LowCardinality(String),
            branch      LowCardinality(String),
            outcome     LowCardinality(String),
            state       LowCardinality(String),
            message     String,
            r2          Nullable(Float64),
            mape        Nullable(Float64),
            rmse        Nullable(Float64),
            artifact    String,
            duration_ms UInt64,
            started_at  DateTime64(3),
            finished_at DateTime64(3)
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(started_at)
        ORDER BY (dataset, started_at, run_id)
    `, table)}
}

func (s *ClickHouseRunStore) Init(ctx context.Context) error {
	for _, stmt := range CHRunSchema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init run ledger: %w", err)
		}
	}
	return nil
}

// SaveRun inserts the items of a run with multi-row VALUES, chunked.
func (s *ClickHouseRunStore) SaveRun(ctx context.Context, summary models.RunSummary) error {
	if len(summary.Items) == 0 {
		return nil
	}
	start := time.Now()
	for lo := 0; lo < len(summary.Items); lo += runInsertChunk {
		hi := lo + runInsertChunk
		if hi > len(summary.Items) {
			hi = len(summary.Items)
		}

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*14)
		for _, it := range summary.Items[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			r2, mape, rmse := evalArgs(it.Evaluation)
			args = append(args,
				summary.RunID,
				summary.Dataset,
				it.Item.Category,
				it.Item.Branch,
				string(it.Outcome),
				string(it.State),
				it.Message,
				r2, mape, rmse,
				it.ArtifactPath,
				uint64(it.Duration.Milliseconds()),
				summary.StartedAt,
				summary.FinishedAt,
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, runColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_run insert error",
				applogger.String("run_id", summary.RunID),
				applogger.Int("rows", hi-lo),
				applogger.Error(err),
			)
			return fmt.Errorf("save run %s: %w", summary.RunID, err)
		}
	}
	s.l.Info("clickhouse save_run ok",
		applogger.String("run_id", summary.RunID),
		applogger.Int("rows", len(summary.Items)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Close is a no-op; the connection belongs to pkg/clickhouse.
func (s *ClickHouseRunStore) Close() error { return nil }

func evalArgs(e *models.EvaluationResult) (r2, mape, rmse interface{}) {
	if e == nil {
		return nil, nil, nil
	}
	return nullable(e.R2), nullable(e.MAPE), nullable(e.RMSE)
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
