package api

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domrepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	"github.com/SeekerKids/forecast-prophet-kp/internal/service/ratelimit"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
	xlogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/queue"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// SingleForecaster runs one item synchronously.
type SingleForecaster interface {
	Forecast(ctx context.Context, req models.ForecastRequest) (*usecase.ForecastReport, error)
}

// BatchAccepted is the 202 body of POST /api/batch.
type BatchAccepted struct {
	Dataset    string   `json:"dataset"`
	Categories []string `json:"categories,omitempty"`
	Branches   []string `json:"branches,omitempty"`
	Status     string   `json:"status"`
}

type ForecastHandler struct {
	logger   *xlogger.Logger
	single   SingleForecaster
	queue    queue.QueueService
	sales    domrepo.SalesSource
	limiter  *ratelimit.Limiter
	defaults usecase.BatchDefaults
}

func NewForecastHandler(logger *xlogger.Logger, single SingleForecaster, q queue.QueueService, sales domrepo.SalesSource,
	limiter *ratelimit.Limiter, defaults usecase.BatchDefaults) *ForecastHandler {
	return &ForecastHandler{logger: logger, single: single, queue: q, sales: sales, limiter: limiter, defaults: defaults}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast", h.Forecast)
	g.POST("/batch", h.Batch)
	g.GET("/categories", h.Categories)
}

func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.single.Forecast(c.Request().Context(), *req)
	if err != nil {
		h.logger.Warn("forecast failed",
			xlogger.String("category", req.Category),
			xlogger.String("branch", req.Branch),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

// Batch validates the request, applies the per-dataset rate limit and queues
// the run. The run itself happens on a queue worker.
func (h *ForecastHandler) Batch(c echo.Context) error {
	req := &models.BatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	plan, err := usecase.PlanFromRequest(*req, h.defaults)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	dataset := plan.Run.Dataset

	if h.limiter != nil && !h.limiter.Allow(dataset) {
		wait := h.limiter.RetryAfter(dataset)
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("batch rate limit reached for dataset "+dataset))
	}

	req.Dataset = dataset
	if err := h.queue.PublishMessage(c.Request().Context(), usecase.BatchJobType, req); err != nil {
		h.logger.Error("enqueue batch failed", xlogger.String("dataset", dataset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not queue batch run").WithError(err))
	}
	h.logger.Info("batch queued",
		xlogger.String("dataset", dataset),
		xlogger.Strings("categories", plan.Categories),
		xlogger.Strings("branches", plan.Branches))

	return xhttp.AcceptedResponse(c, BatchAccepted{
		Dataset:    dataset,
		Categories: plan.Categories,
		Branches:   plan.Branches,
		Status:     "queued",
	})
}

func (h *ForecastHandler) Categories(c echo.Context) error {
	req := &models.CategoriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, _ := util.ParseDate(req.Start)
	end, _ := util.ParseDate(req.End)
	if end.Before(start) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("end is before start"))
	}

	scope := models.Scope{Dataset: h.defaults.Dataset, Branch: strings.TrimSpace(req.Branch)}
	cats, err := h.sales.Categories(c.Request().Context(), scope, start, end)
	if err != nil {
		h.logger.Error("categories query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, cats, int64(len(cats)))
}
