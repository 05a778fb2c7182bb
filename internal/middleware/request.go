package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the echo.Context key holding the request id.
const RequestIDKey = "request_id"

// RequestID assigns every request an id, reusing a client-supplied
// X-Request-ID when present, and echoes it in the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			c.Set(RequestIDKey, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// GetRequestID returns the id set by RequestID, or "" outside a request.
func GetRequestID(c echo.Context) string {
	if s, ok := c.Get(RequestIDKey).(string); ok {
		return s
	}
	return ""
}

// RequestLogger emits one structured log line per request: error for 5xx,
// warn for 4xx and info otherwise.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("query", req.URL.RawQuery),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", c.RealIP()),
				zap.String("user_agent", req.UserAgent()),
				zap.Int64("body_size", c.Response().Size),
			}
			if rid := GetRequestID(c); rid != "" {
				fields = append(fields, zap.String("request_id", rid))
			}
			if cache := c.Response().Header().Get("X-Cache"); cache != "" {
				fields = append(fields, zap.String("cache", cache))
			}

			switch {
			case status >= 500:
				logger.Error("http_request", fields...)
			case status >= 400:
				logger.Warn("http_request", fields...)
			default:
				logger.Info("http_request", fields...)
			}
			return nil
		}
	}
}
