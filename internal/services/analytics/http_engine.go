package analytics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// HTTPEngine drives a Prophet model service over HTTP:
//
//	POST   /fit          -> {"model_id": "..."}
//	POST   /predict      -> {"predictions": [{"ds","yhat","yhat_lower","yhat_upper"}]}
//	DELETE /models/{id}
//
// The service is reentrant, so one HTTPEngine may be shared by batch workers.
type HTTPEngine struct {
	base          *HTTPServiceBase
	intervalWidth float64
}

func NewHTTPEngine(base *HTTPServiceBase, intervalWidth float64) *HTTPEngine {
	return &HTTPEngine{base: base, intervalWidth: intervalWidth}
}

type httpModel struct {
	id         string
	regressors []string
}

func (m httpModel) ID() string { return m.id }

type seasonality struct {
	Yearly bool `json:"yearly"`
	Weekly bool `json:"weekly"`
	Daily  bool `json:"daily"`
}

type holidayRow struct {
	DS          string `json:"ds"`
	Holiday     string `json:"holiday"`
	LowerWindow int    `json:"lower_window"`
	UpperWindow int    `json:"upper_window"`
}

type fitReq struct {
	Rows          []map[string]interface{} `json:"rows"`
	Regressors    []string                 `json:"regressors"`
	Holidays      []holidayRow             `json:"holidays"`
	Seasonality   seasonality              `json:"seasonality"`
	IntervalWidth float64                  `json:"interval_width"`
}

type fitResp struct {
	ModelID string `json:"model_id"`
}

type predictReq struct {
	ModelID string                   `json:"model_id"`
	Rows    []map[string]interface{} `json:"rows"`
}

type predictRow struct {
	DS        string   `json:"ds"`
	Yhat      *float64 `json:"yhat"`
	YhatLower *float64 `json:"yhat_lower"`
	YhatUpper *float64 `json:"yhat_upper"`
}

type predictResp struct {
	Predictions []predictRow `json:"predictions"`
}

func (e *HTTPEngine) Fit(ctx context.Context, rows []models.FeatureRow, regressors []string, holidays []models.CalendarEvent) (domsvc.Model, error) {
	payload, err := encodeRows(rows, regressors, true)
	if err != nil {
		return nil, err
	}
	req := fitReq{
		Rows:          payload,
		Regressors:    regressors,
		Holidays:      make([]holidayRow, 0, len(holidays)),
		Seasonality:   seasonality{Yearly: true, Weekly: true, Daily: false},
		IntervalWidth: e.intervalWidth,
	}
	for _, h := range holidays {
		name := h.Label
		if name == "" {
			name = "holiday"
		}
		req.Holidays = append(req.Holidays, holidayRow{
			DS:          h.Date.Format(util.DateLayout),
			Holiday:     name,
			LowerWindow: h.LowerWindow,
			UpperWindow: h.UpperWindow,
		})
	}

	var resp fitResp
	if err := e.base.PostJSONWithRetry(ctx, "/fit", req, &resp); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if resp.ModelID == "" {
		return nil, fmt.Errorf("fit: service returned no model id")
	}
	return httpModel{id: resp.ModelID, regressors: append([]string(nil), regressors...)}, nil
}

func (e *HTTPEngine) Predict(ctx context.Context, m domsvc.Model, rows []models.FeatureRow) ([]models.Prediction, error) {
	hm, ok := m.(httpModel)
	if !ok {
		return nil, fmt.Errorf("predict: model %T was not fitted by this engine", m)
	}
	payload, err := encodeRows(rows, hm.regressors, false)
	if err != nil {
		return nil, err
	}

	var resp predictResp
	if err := e.base.PostJSONWithRetry(ctx, "/predict", predictReq{ModelID: hm.id, Rows: payload}, &resp); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	out := make([]models.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		d, ok := util.ParseDate(p.DS)
		if !ok {
			return nil, fmt.Errorf("predict: bad ds %q in response", p.DS)
		}
		out = append(out, models.Prediction{
			Date:  d,
			Yhat:  orNaN(p.Yhat),
			Lower: orNaN(p.YhatLower),
			Upper: orNaN(p.YhatUpper),
		})
	}
	return out, nil
}

func (e *HTTPEngine) Release(ctx context.Context, m domsvc.Model) error {
	if m == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := e.base.Delete(ctx, "/models/"+url.PathEscape(m.ID()))
	if xhttp.IsStatus(err, http.StatusNotFound) {
		// already evicted by the service
		return nil
	}
	return err
}

// encodeRows flattens rows into the column-per-key shape the service expects.
func encodeRows(rows []models.FeatureRow, regressors []string, withTarget bool) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		m := make(map[string]interface{}, len(regressors)+3)
		m["ds"] = r.Date.Format(util.DateLayout)
		if withTarget && r.HasTarget() {
			m["y"] = r.Y
		}
		for _, name := range regressors {
			v, ok := r.Regressor(name)
			if !ok {
				return nil, fmt.Errorf("unknown regressor %q", name)
			}
			m[name] = v
		}
		out[i] = m
	}
	return out, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

var _ domsvc.ForecastEngine = (*HTTPEngine)(nil)
