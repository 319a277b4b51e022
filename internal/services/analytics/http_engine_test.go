package analytics

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

func featureRows(start string, n int) []models.FeatureRow {
	day := util.MustDate(start)
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		d := day.AddDate(0, 0, i)
		dow := util.MondayIndex(d.Weekday())
		rows[i] = models.FeatureRow{
			Date:      d,
			Y:         float64(10 + i),
			Weekend:   dow >= 5,
			Libur:     dow >= 5,
			DayOfWeek: dow,
			Month:     int(d.Month()),
			Year:      d.Year(),
		}
	}
	return rows
}

func TestHTTPEngineFitPredictRelease(t *testing.T) {
	var fitBody fitReq
	var deleted atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/fit", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&fitBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"model_id": "m-1"})
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		var req predictReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m-1", req.ModelID)
		preds := make([]map[string]interface{}, 0, len(req.Rows))
		for i, row := range req.Rows {
			_, hasY := row["y"]
			assert.False(t, hasY, "predict rows carry no target")
			p := map[string]interface{}{"ds": row["ds"], "yhat": 100.4, "yhat_lower": 90.0, "yhat_upper": 110.0}
			if i == 0 {
				p["yhat"] = nil
			}
			preds = append(preds, p)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"predictions": preds})
	})
	mux.HandleFunc("/models/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted.Store(r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	engine := NewHTTPEngine(NewHTTPServiceBase(srv.URL, time.Second, 0), 0.8)
	ctx := context.Background()

	holidays := []models.CalendarEvent{{Date: util.MustDate("2025-01-01"), Label: "Tahun Baru"}, {Date: util.MustDate("2025-01-02")}}
	model, err := engine.Fit(ctx, featureRows("2025-01-01", 5), models.ModelRegressors, holidays)
	require.NoError(t, err)
	assert.Equal(t, "m-1", model.ID())

	require.Len(t, fitBody.Rows, 5)
	assert.Equal(t, "2025-01-01", fitBody.Rows[0]["ds"])
	assert.Equal(t, 10.0, fitBody.Rows[0]["y"])
	_, hasHoliday := fitBody.Rows[0][models.RegIsHoliday]
	assert.False(t, hasHoliday, "IsHoliday is not sent as a regressor")
	assert.Equal(t, models.ModelRegressors, fitBody.Regressors)
	require.Len(t, fitBody.Holidays, 2)
	assert.Equal(t, "holiday", fitBody.Holidays[1].Holiday)
	assert.Zero(t, fitBody.Holidays[0].LowerWindow)
	assert.True(t, fitBody.Seasonality.Yearly)
	assert.False(t, fitBody.Seasonality.Daily)

	preds, err := engine.Predict(ctx, model, featureRows("2025-02-01", 3))
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.True(t, math.IsNaN(preds[0].Yhat), "null yhat decodes as NaN")
	assert.Equal(t, 100.4, preds[1].Yhat)
	assert.Equal(t, "2025-02-02", preds[1].Date.Format(util.DateLayout))

	require.NoError(t, engine.Release(ctx, model))
	assert.Equal(t, "/models/m-1", deleted.Load())
}

func TestHTTPEngineRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"model_id": "m-2"})
	}))
	defer srv.Close()

	engine := NewHTTPEngine(NewHTTPServiceBase(srv.URL, time.Second, 10*time.Second), 0.8)
	model, err := engine.Fit(context.Background(), featureRows("2025-01-01", 3), models.ModelRegressors, nil)
	require.NoError(t, err)
	assert.Equal(t, "m-2", model.ID())
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPEngineDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "regressor month has NaN", http.StatusBadRequest)
	}))
	defer srv.Close()

	engine := NewHTTPEngine(NewHTTPServiceBase(srv.URL, time.Second, 10*time.Second), 0.8)
	_, err := engine.Fit(context.Background(), featureRows("2025-01-01", 3), models.ModelRegressors, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regressor month has NaN")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPEngineRejectsForeignModel(t *testing.T) {
	engine := NewHTTPEngine(NewHTTPServiceBase("http://unused", time.Second, 0), 0.8)
	_, err := engine.Predict(context.Background(), &additiveModel{id: "x"}, nil)
	assert.Error(t, err)
}

func TestHTTPEngineReportsUnavailableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	engine := NewHTTPEngine(NewHTTPServiceBase(srv.URL, time.Second, 0), 0.8)
	_, err := engine.Fit(context.Background(), featureRows("2025-01-01", 3), models.ModelRegressors, nil)
	assert.ErrorIs(t, err, models.ErrEngineUnavailable)
}

func TestHTTPEngineReleaseToleratesEvictedModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown model", http.StatusNotFound)
	}))
	defer srv.Close()

	engine := NewHTTPEngine(NewHTTPServiceBase(srv.URL, time.Second, 0), 0.8)
	assert.NoError(t, engine.Release(context.Background(), httpModel{id: "gone"}))
}
