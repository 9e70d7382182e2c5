package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// bodies shorter than this are echoed at debug level
const maxLoggedBody = 250

// RequestLog writes one structured line per request.
func RequestLog(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if r := c.Request(); r.Body != nil && r.ContentLength > 0 && r.ContentLength < maxLoggedBody {
				body, _ := io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(body))
				log.WithField("uri", r.RequestURI).WithField("body", string(body)).Debug("request body")
			}
			if err := next(c); err != nil {
				c.Error(err)
			}
			req := c.Request()
			status := c.Response().Status
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"route":      c.Path(),
				"uri":        req.RequestURI,
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": req.Header.Get(HeaderRequestID),
			})
			if p := PrincipalFrom(c); p.OrgID != "" {
				entry = entry.WithFields(logrus.Fields{"org_id": p.OrgID, "user_id": p.UserID})
			}
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
			return nil
		}
	}
}
