package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

func TestWriteSummary(t *testing.T) {
	start := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	writeSummary(&buf, models.RunSummary{
		RunID:      "run-1",
		Dataset:    "kp",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Items: []models.BatchItemResult{
			{
				Item:         models.BatchItem{Category: "MILK", Branch: "B01"},
				Outcome:      models.OutcomeSuccess,
				Evaluation:   &models.EvaluationResult{R2: models.Float(0.81), MAPE: models.Float(9.5)},
				ArtifactPath: "output/kp/B01/MILK.xlsx",
			},
			{
				Item:    models.BatchItem{Category: "SNACK"},
				Outcome: models.OutcomeSkippedNoData,
				Message: "no sales in range",
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Run run-1 dataset=kp duration=1m30s")
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Regexp(t, `^MILK\s+B01\s+success\s+0\.81\s+9\.50\s+output/kp/B01/MILK\.xlsx$`, lines[3])
	assert.Regexp(t, `^SNACK\s+-\s+skipped_no_data\s+N/A\s+N/A\s+no sales in range$`, lines[4])
	assert.Contains(t, out, "2 items: success=1 skipped_no_data=1")
}

func TestWriteReportBlanksMissingValues(t *testing.T) {
	var buf bytes.Buffer
	writeReport(&buf, &usecase.ForecastReport{
		Item:    models.BatchItem{Category: "MILK"},
		Dataset: "kp",
		Forecast: []models.ForecastRow{
			{Date: util.MustDate("2025-01-01"), Point: 12.7, Lower: 8, Upper: 16},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "R2=N/A MAPE=N/A")
	assert.Regexp(t, `2025-01-01\s+12\s+8\s+16`, out)
}

func TestWriteCalendar(t *testing.T) {
	store, warnings := calendar.New(models.CalendarSnapshot{
		Holidays: []models.CalendarEvent{{Date: util.MustDate("2025-03-31"), Label: "Idul Fitri"}},
		Fasting:  []models.DateRange{{Start: util.MustDate("2025-03-01"), End: util.MustDate("2025-03-30")}},
	})
	require.Empty(t, warnings)

	var buf bytes.Buffer
	writeCalendar(&buf, store)
	out := buf.String()
	assert.Contains(t, out, "holidays=1 fasting_days=30 exam_days=0")
	assert.Regexp(t, `holiday\s+2025-03-31\s+2025-03-31\s+Idul Fitri`, out)
	assert.Regexp(t, `Ramadan\s+2025-03-01\s+2025-03-30`, out)
}
