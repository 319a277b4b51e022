package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/service/ratelimit"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
	xlogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

type stubForecaster struct {
	report *usecase.ForecastReport
	err    error
	got    models.ForecastRequest
}

func (s *stubForecaster) Forecast(_ context.Context, req models.ForecastRequest) (*usecase.ForecastReport, error) {
	s.got = req
	return s.report, s.err
}

type recordingQueue struct {
	mu   sync.Mutex
	sent []interface{}
	err  error
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if msgType != usecase.BatchJobType {
		return fmt.Errorf("unexpected type %s", msgType)
	}
	q.sent = append(q.sent, payload)
	return nil
}

type stubSales struct {
	cats  []string
	err   error
	scope models.Scope
}

func (s *stubSales) DailySales(context.Context, models.Scope, string, time.Time, time.Time) (models.RawSalesSeries, error) {
	return models.RawSalesSeries{}, nil
}

func (s *stubSales) Categories(_ context.Context, scope models.Scope, _, _ time.Time) ([]string, error) {
	s.scope = scope
	return s.cats, s.err
}

func (s *stubSales) Branches(context.Context) ([]models.Branch, error) { return nil, nil }

var testDefaults = usecase.BatchDefaults{
	Dataset:     "kp",
	Start:       util.MustDate("2022-01-01"),
	End:         util.MustDate("2025-07-31"),
	Cutoff:      util.MustDate("2025-01-01"),
	HorizonDays: 212,
}

func newTestServer(handlers ...xhttp.Handler) *echo.Echo {
	e := echo.New()
	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	return e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestForecastReturnsReport(t *testing.T) {
	fc := &stubForecaster{report: &usecase.ForecastReport{
		Item:       models.BatchItem{Category: "MILK"},
		Dataset:    "kp",
		Evaluation: &models.EvaluationResult{R2: models.Float(0.7)},
	}}
	h := NewForecastHandler(xlogger.Nop(), fc, &recordingQueue{}, &stubSales{}, nil, testDefaults)
	e := newTestServer(h)

	rec := doJSON(e, http.MethodPost, "/api/forecast", `{"category":"MILK"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "kp", data["dataset"])

	assert.Equal(t, "MILK", fc.got.Category)
	assert.Equal(t, "2025-01-01", fc.got.Cutoff, "defaults fill omitted fields")
	assert.Equal(t, 212, fc.got.HorizonDays)
}

func TestForecastValidation(t *testing.T) {
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, &recordingQueue{}, &stubSales{}, nil, testDefaults)
	e := newTestServer(h)

	rec := doJSON(e, http.MethodPost, "/api/forecast", `{"start":"31/01/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "category")
}

func TestForecastErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"no data", fmt.Errorf("load: %w", models.ErrDataUnavailable), http.StatusUnprocessableEntity},
		{"prep", models.ErrNoUsableData, http.StatusUnprocessableEntity},
		{"train", fmt.Errorf("%w: singular matrix", models.ErrTrainingFailed), http.StatusUnprocessableEntity},
		{"engine down", fmt.Errorf("%w: %w", models.ErrTrainingFailed, models.ErrEngineUnavailable), http.StatusBadGateway},
		{"bad request", fmt.Errorf("%w: category is required", usecase.ErrInvalidRequest), http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewForecastHandler(xlogger.Nop(), &stubForecaster{err: tc.err}, &recordingQueue{}, &stubSales{}, nil, testDefaults)
			rec := doJSON(newTestServer(h), http.MethodPost, "/api/forecast", `{"category":"MILK"}`)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestBatchQueuesRun(t *testing.T) {
	q := &recordingQueue{}
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, q, &stubSales{}, nil, testDefaults)
	e := newTestServer(h)

	rec := doJSON(e, http.MethodPost, "/api/batch", `{"categories":["MILK"," ","MILK","SNACK"],"branches":["B01"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "kp", data["dataset"])
	assert.Equal(t, "queued", data["status"])
	assert.Equal(t, []interface{}{"MILK", "SNACK"}, data["categories"])

	require.Len(t, q.sent, 1)
	sent := q.sent[0].(*models.BatchRequest)
	assert.Equal(t, "kp", sent.Dataset)
}

func TestBatchRejectsInvertedRange(t *testing.T) {
	q := &recordingQueue{}
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, q, &stubSales{}, nil, testDefaults)

	rec := doJSON(newTestServer(h), http.MethodPost, "/api/batch", `{"start":"2025-01-01","end":"2024-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, q.sent)
}

func TestBatchRateLimited(t *testing.T) {
	q := &recordingQueue{}
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, q, &stubSales{}, ratelimit.New(1, 0.01), testDefaults)
	e := newTestServer(h)

	require.Equal(t, http.StatusAccepted, doJSON(e, http.MethodPost, "/api/batch", `{}`).Code)
	rec := doJSON(e, http.MethodPost, "/api/batch", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := doJSON(e, http.MethodPost, "/api/batch", `{"dataset":"tl"}`)
	assert.Equal(t, http.StatusAccepted, other.Code, "limits are per dataset")
	assert.Len(t, q.sent, 2)
}

func TestBatchQueueFailure(t *testing.T) {
	q := &recordingQueue{err: errors.New("redis down")}
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, q, &stubSales{}, nil, testDefaults)

	rec := doJSON(newTestServer(h), http.MethodPost, "/api/batch", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCategoriesListsSource(t *testing.T) {
	src := &stubSales{cats: []string{"MILK", "SNACK"}}
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, &recordingQueue{}, src, nil, testDefaults)

	rec := doJSON(newTestServer(h), http.MethodGet, "/api/categories?branch=B01&start=2024-01-01&end=2024-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, []interface{}{"MILK", "SNACK"}, data["rows"])
	assert.Equal(t, models.Scope{Dataset: "kp", Branch: "B01"}, src.scope)
}

func TestCategoriesRejectsInvertedRange(t *testing.T) {
	h := NewForecastHandler(xlogger.Nop(), &stubForecaster{}, &recordingQueue{}, &stubSales{}, nil, testDefaults)
	rec := doJSON(newTestServer(h), http.MethodGet, "/api/categories?start=2024-03-01&end=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
