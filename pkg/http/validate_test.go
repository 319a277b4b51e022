package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type periodBody struct {
	Kind    string `json:"kind" validate:"required,oneof=Ramadan Ujian"`
	Start   string `json:"start" validate:"required,datetime=2006-01-02"`
	Horizon int    `json:"horizon" default:"30" validate:"gte=1,lte=365"`
}

func bind(t *testing.T, body string) (*periodBody, []ValidationError) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &periodBody{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	got, errs := bind(t, `{"kind":"Ramadan","start":"2025-03-01"}`)
	require.Nil(t, errs)
	assert.Equal(t, 30, got.Horizon)
}

func TestReadAndValidateReportsJSONFieldNames(t *testing.T) {
	_, errs := bind(t, `{"kind":"Lebaran","start":"01/03/2025","horizon":400}`)
	require.Len(t, errs, 3)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_ONEOF", byField["kind"].Code)
	assert.Equal(t, "kind must be one of: Ramadan, Ujian", byField["kind"].Message)
	assert.Equal(t, []string{"Ramadan", "Ujian"}, byField["kind"].Params["options"])
	assert.Equal(t, "start must be a date formatted as YYYY-MM-DD", byField["start"].Message)
	assert.Equal(t, "horizon must be at most 365", byField["horizon"].Message)
}

func TestReadAndValidateWrongType(t *testing.T) {
	_, errs := bind(t, `{"kind":"Ramadan","start":"2025-03-01","horizon":"ten"}`)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_TYPE", errs[0].Code)
	assert.Equal(t, "horizon", errs[0].Field)
	assert.Equal(t, "horizon has the wrong type, expected int", errs[0].Message)
}
