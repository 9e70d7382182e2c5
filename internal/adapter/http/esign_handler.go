package http

import (
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/usecase/esign"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ESignHandler serves the signer's public link. The token is the only credential.
type ESignHandler struct {
	uc  *esign.Usecase
	log logrus.FieldLogger
}

func NewESignHandler(uc *esign.Usecase, log logrus.FieldLogger) *ESignHandler {
	return &ESignHandler{uc: uc, log: log}
}

func (h *ESignHandler) View(c echo.Context) error {
	v, err := h.uc.View(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

type initiateReq struct {
	Consent       bool   `json:"consent"`
	AadhaarNumber string `json:"aadhaar_number" validate:"required"`
}

func (h *ESignHandler) Initiate(c echo.Context) error {
	var req initiateReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.uc.Initiate(c.Request().Context(), c.Param("token"), esign.InitiateInput{
		Consent:       req.Consent,
		AadhaarNumber: req.AadhaarNumber,
		IP:            c.RealIP(),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

type completeReq struct {
	OTP string `json:"otp" validate:"required,numeric"`
}

func (h *ESignHandler) Complete(c echo.Context) error {
	var req completeReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.uc.Complete(c.Request().Context(), c.Param("token"), esign.CompleteInput{OTP: req.OTP, IP: c.RealIP()})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}
