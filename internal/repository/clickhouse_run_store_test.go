package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
)

func TestClickHouseRunStoreSaveRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	summary := models.RunSummary{
		RunID:      "run-1",
		Dataset:    "kp",
		StartedAt:  started,
		FinishedAt: finished,
		Items: []models.BatchItemResult{
			{
				Item:         models.BatchItem{Category: "MILK"},
				Outcome:      models.OutcomeSuccess,
				State:        models.StateExported,
				Evaluation:   &models.EvaluationResult{R2: models.Float(0.8), MAPE: models.Float(7.5), RMSE: models.Float(3)},
				ArtifactPath: "out/kp/MILK.xlsx",
				Duration:     2 * time.Second,
			},
			{
				Item:     models.BatchItem{Category: "TEA", Branch: "B01"},
				Outcome:  models.OutcomeSkippedNoData,
				State:    models.StateLoading,
				Message:  "data unavailable",
				Duration: 10 * time.Millisecond,
			},
		},
	}

	mock.ExpectExec("INSERT INTO forecast_runs").
		WithArgs(
			"run-1", "kp", "MILK", "", "success", "exported", "", 0.8, 7.5, 3.0, "out/kp/MILK.xlsx", uint64(2000), started, finished,
			"run-1", "kp", "TEA", "B01", "skipped_no_data", "loading", "data unavailable", nil, nil, nil, "", uint64(10), started, finished,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	store := NewClickHouseRunStore(db, "forecast_runs", nil)
	require.NoError(t, store.SaveRun(context.Background(), summary))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseRunStoreInitAndEmptyRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS forecast_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewClickHouseRunStore(db, "forecast_runs", nil)
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, store.SaveRun(context.Background(), models.RunSummary{RunID: "empty"}))
	assert.NoError(t, mock.ExpectationsWereMet(), "an empty run issues no insert")
	assert.NoError(t, store.Close())
}
