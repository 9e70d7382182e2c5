package http

import (
	"errors"
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindProvider:
		return http.StatusBadGateway
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindConflict, apperr.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse. Causes of internal errors are
// logged, never returned.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Code:    apperr.ErrInvalid.Code,
			Details: ToFieldErrors(err),
		})
	}
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		status := statusFor(e.Kind)
		entry := log.WithFields(logrus.Fields{"code": e.Code, "status": status, "route": c.Path()})
		if e.Err != nil {
			entry = entry.WithError(e.Err)
		}
		if status >= http.StatusInternalServerError {
			entry.Error(e.Message)
		} else {
			entry.Debug(e.Message)
		}
		return c.JSON(status, ErrorResponse{Error: e.Message, Code: e.Code, Meta: e.Meta})
	}
	log.WithError(err).WithField("route", c.Path()).Error("internal error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "invalid_request"})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			code := "http_error"
			switch he.Code {
			case http.StatusNotFound:
				code = "route_not_found"
			case http.StatusMethodNotAllowed:
				code = "method_not_allowed"
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: msg, Code: code})
			return
		}
		_ = respondError(c, log, err)
	}
}
