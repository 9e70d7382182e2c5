package http

import (
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	"github.com/EcrTech/FL-sub005/internal/usecase/collection"
	"github.com/EcrTech/FL-sub005/internal/usecase/mandate"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PaymentHandler covers NACH mandates, debits and UPI collections.
type PaymentHandler struct {
	mandates    *mandate.Usecase
	collections *collection.Usecase
	log         logrus.FieldLogger
}

func NewPaymentHandler(m *mandate.Usecase, col *collection.Usecase, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{mandates: m, collections: col, log: log}
}

type registerMandateReq struct {
	MaxAmount     decimal.Decimal `json:"max_amount" validate:"dpos,dec2"`
	Frequency     string          `json:"frequency" validate:"omitempty,oneof=monthly weekly quarterly adhoc"`
	StartDate     string          `json:"start_date" validate:"required"`
	EndDate       string          `json:"end_date" validate:"required"`
	AccountHolder string          `json:"account_holder" validate:"required"`
	AccountNumber string          `json:"account_number" validate:"required,numeric,min=6,max=18"`
	IFSC          string          `json:"ifsc" validate:"required,ifsc"`
}

func (h *PaymentHandler) RegisterMandate(c echo.Context) error {
	var req registerMandateReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return respondError(c, h.log, err)
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return respondError(c, h.log, err)
	}
	m, err := h.mandates.Register(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), mandate.RegisterInput{
		MaxAmount:     req.MaxAmount,
		Frequency:     req.Frequency,
		StartDate:     *start,
		EndDate:       *end,
		AccountHolder: req.AccountHolder,
		AccountNumber: req.AccountNumber,
		IFSC:          req.IFSC,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

type debitReq struct {
	Amount          decimal.Decimal `json:"amount" validate:"dpos,dec2"`
	ScheduleEntryID *uint64         `json:"schedule_entry_id"`
	DueDate         string          `json:"due_date"`
}

func (h *PaymentHandler) Debit(c echo.Context) error {
	var req debitReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return respondError(c, h.log, err)
	}
	t, err := h.mandates.Debit(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), mandate.DebitInput{
		Amount:          req.Amount,
		ScheduleEntryID: req.ScheduleEntryID,
		DueDate:         due,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *PaymentHandler) RefreshMandate(c echo.Context) error {
	m, err := h.mandates.Refresh(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("mandate_ref"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *PaymentHandler) CancelMandate(c echo.Context) error {
	var req cancelReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	m, err := h.mandates.Cancel(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("mandate_ref"), req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}

type upiReq struct {
	ClientRef       string          `json:"client_ref"`
	Amount          decimal.Decimal `json:"amount" validate:"dpos,dec2"`
	PayerVPA        string          `json:"payer_vpa" validate:"omitempty,vpa"`
	ScheduleEntryID *uint64         `json:"schedule_entry_id"`
	Note            string          `json:"note" validate:"max=50"`
}

// CreateUPI answers 201 for a new collection and 200 when the client
// reference was already used for the same application.
func (h *PaymentHandler) CreateUPI(c echo.Context) error {
	var req upiReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.collections.CreateUPI(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), collection.CreateUPIInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if res.Duplicate {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *PaymentHandler) CollectionStatus(c echo.Context) error {
	t, err := h.collections.Status(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("client_ref"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, t)
}
