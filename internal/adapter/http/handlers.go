package http

import (
	"net/http"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"

	"github.com/labstack/echo/v4"
)

var errMalformedBody = apperr.Validation("malformed_body", "request body is not valid JSON")

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// bindAndValidate decodes the JSON body into v and runs its validate tags.
func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errMalformedBody
	}
	return c.Validate(v)
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.ErrInvalid.Msg("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}
