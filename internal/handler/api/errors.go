package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
)

// toAppError maps domain failures onto HTTP statuses. The engine check comes
// first because training failures wrap it.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrEngineUnavailable):
		return xhttp.BadGatewayError("forecast engine unavailable").WithError(err)
	case errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, calendar.ErrInvalidHoliday),
		errors.Is(err, calendar.ErrInvalidPeriod):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrDataUnavailable),
		errors.Is(err, models.ErrPreparationFailed),
		errors.Is(err, models.ErrEmptyTrainingSet),
		errors.Is(err, models.ErrTrainingFailed),
		errors.Is(err, models.ErrEmptyForecast):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrRunInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
