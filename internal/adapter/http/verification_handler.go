package http

import (
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	domain "github.com/EcrTech/FL-sub005/internal/domain/verification"
	"github.com/EcrTech/FL-sub005/internal/usecase/verification"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type VerificationHandler struct {
	uc  *verification.Usecase
	log logrus.FieldLogger
}

func NewVerificationHandler(uc *verification.Usecase, log logrus.FieldLogger) *VerificationHandler {
	return &VerificationHandler{uc: uc, log: log}
}

type verifyReq struct {
	Fields map[string]string `json:"fields"`
}

func (h *VerificationHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	rec, err := h.uc.Verify(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), domain.Type(c.Param("type")), req.Fields)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *VerificationHandler) List(c echo.Context) error {
	recs, err := h.uc.List(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"verifications": recs})
}
