package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/service/cache"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
	xlogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const calendarCacheKey = "snapshot"

// CalendarEditor is the part of calendar.Editor the API needs.
type CalendarEditor interface {
	Store(ctx context.Context) *calendar.EventStore
	AddHoliday(ctx context.Context, date time.Time, label string) error
	AddPeriod(ctx context.Context, kind models.PeriodKind, start, end time.Time) error
}

// CalendarView is the body of GET /api/calendar.
type CalendarView struct {
	models.CalendarSnapshot
	HolidayCount int `json:"holiday_count"`
	FastingDays  int `json:"fasting_days"`
	ExamDays     int `json:"exam_days"`
}

type CalendarHandler struct {
	logger *xlogger.Logger
	editor CalendarEditor
	cache  *cache.TTLCache[CalendarView]
	ttl    time.Duration
}

func NewCalendarHandler(logger *xlogger.Logger, editor CalendarEditor, ttl time.Duration) *CalendarHandler {
	return &CalendarHandler{
		logger: logger,
		editor: editor,
		cache:  cache.NewTTLCache[CalendarView](),
		ttl:    ttl,
	}
}

func (h *CalendarHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/calendar")
	g.GET("", h.Show)
	g.POST("/holidays", h.AddHoliday)
	g.POST("/periods", h.AddPeriod)
}

func (h *CalendarHandler) Show(c echo.Context) error {
	ctx := c.Request().Context()
	view, err := h.cache.GetOrLoad(calendarCacheKey, h.ttl, func() (CalendarView, error) {
		store := h.editor.Store(ctx)
		hol, fasting, exams := store.Stats()
		return CalendarView{
			CalendarSnapshot: store.Snapshot(),
			HolidayCount:     hol,
			FastingDays:      fasting,
			ExamDays:         exams,
		}, nil
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *CalendarHandler) AddHoliday(c echo.Context) error {
	req := &models.HolidayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, _ := util.ParseDate(req.Date)

	if err := h.editor.AddHoliday(c.Request().Context(), date, req.Label); err != nil {
		h.logger.Warn("add holiday failed", xlogger.String("date", req.Date), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.cache.Delete(calendarCacheKey)
	h.logger.Info("holiday added", xlogger.String("date", req.Date), xlogger.String("label", req.Label))
	return xhttp.CreatedResponse(c, req)
}

func (h *CalendarHandler) AddPeriod(c echo.Context) error {
	req := &models.PeriodRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, _ := util.ParseDate(req.Start)
	end, _ := util.ParseDate(req.End)

	if err := h.editor.AddPeriod(c.Request().Context(), models.PeriodKind(req.Kind), start, end); err != nil {
		h.logger.Warn("add period failed", xlogger.String("kind", req.Kind), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.cache.Delete(calendarCacheKey)
	h.logger.Info("period added",
		xlogger.String("kind", req.Kind),
		xlogger.String("start", req.Start),
		xlogger.String("end", req.End))
	return xhttp.CreatedResponse(c, req)
}
