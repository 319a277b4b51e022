package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

// RequestLogging logs one line per request. Forecast requests train a model
// inline, so slow requests are expected and logged at info.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("uri", req.RequestURI),
				applogger.Int("status", res.Status),
				applogger.Duration("latency_ms", time.Since(start)),
				applogger.Int64("bytes", res.Size),
			}
			if res.Status >= 500 {
				l.Error("http request failed", fields...)
			} else {
				l.Info("http request", fields...)
			}
			return nil
		}
	}
}
