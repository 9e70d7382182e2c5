package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	domain "github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/usecase/application"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ApplicationHandler struct {
	uc  *application.Usecase
	log logrus.FieldLogger
}

func NewApplicationHandler(uc *application.Usecase, log logrus.FieldLogger) *ApplicationHandler {
	return &ApplicationHandler{uc: uc, log: log}
}

type applicantReq struct {
	IsPrimary      bool            `json:"is_primary"`
	FirstName      string          `json:"first_name" validate:"required"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone" validate:"required,inphone"`
	Email          string          `json:"email" validate:"omitempty,email"`
	PAN            string          `json:"pan" validate:"omitempty,pan"`
	Aadhaar        string          `json:"aadhaar" validate:"omitempty,len=12,numeric"`
	DateOfBirth    string          `json:"date_of_birth"`
	Address        string          `json:"address"`
	EmploymentType string          `json:"employment_type"`
	MonthlyIncome  decimal.Decimal `json:"monthly_income"`
}

type createApplicationReq struct {
	RequestedAmount decimal.Decimal `json:"requested_amount" validate:"dpos,dec2"`
	TenureMonths    int             `json:"tenure_months" validate:"gte=1,lte=360"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	AssignedTo      string          `json:"assigned_to"`
	ContactID       *uint64         `json:"contact_id"`
	Applicants      []applicantReq  `json:"applicants" validate:"required,min=1,dive"`
}

func (h *ApplicationHandler) Create(c echo.Context) error {
	var req createApplicationReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	in := application.CreateInput{
		RequestedAmount: req.RequestedAmount,
		TenureMonths:    req.TenureMonths,
		InterestRate:    req.InterestRate,
		AssignedTo:      req.AssignedTo,
		ContactID:       req.ContactID,
	}
	for _, a := range req.Applicants {
		in.Applicants = append(in.Applicants, application.ApplicantInput{
			IsPrimary:      a.IsPrimary,
			FirstName:      a.FirstName,
			LastName:       a.LastName,
			Phone:          a.Phone,
			Email:          a.Email,
			PAN:            strings.ToUpper(a.PAN),
			Aadhaar:        a.Aadhaar,
			DateOfBirth:    a.DateOfBirth,
			Address:        a.Address,
			EmploymentType: a.EmploymentType,
			MonthlyIncome:  a.MonthlyIncome,
		})
	}
	dto, err := h.uc.Create(c.Request().Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ApplicationHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type transitionReq struct {
	To   string `json:"to" validate:"required"`
	Note string `json:"note"`
}

func (h *ApplicationHandler) Transition(c echo.Context) error {
	var req transitionReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	dto, err := h.uc.Advance(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), domain.Stage(req.To), req.Note)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type decisionReq struct {
	Decision       string              `json:"decision" validate:"required,oneof=approve reject"`
	ApprovedAmount decimal.NullDecimal `json:"approved_amount"`
	Reason         string              `json:"reason"`
}

func (h *ApplicationHandler) Decide(c echo.Context) error {
	var req decisionReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	dto, err := h.uc.Decide(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), application.DecisionInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type assignReq struct {
	AssignedTo string `json:"assigned_to" validate:"required"`
}

func (h *ApplicationHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.uc.Assign(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), req.AssignedTo)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *ApplicationHandler) Cancel(c echo.Context) error {
	var req cancelReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	dto, err := h.uc.Cancel(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type repeatReq struct {
	RequestedAmount decimal.Decimal `json:"requested_amount" validate:"dpos,dec2"`
	TenureMonths    int             `json:"tenure_months" validate:"gte=1,lte=360"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	AssignedTo      string          `json:"assigned_to"`
}

func (h *ApplicationHandler) Repeat(c echo.Context) error {
	var req repeatReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	dto, err := h.uc.CreateRepeat(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), application.RepeatInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type disburseReq struct {
	Amount      decimal.Decimal `json:"amount" validate:"dpos,dec2"`
	Reference   string          `json:"reference" validate:"required"`
	DisbursedAt *time.Time      `json:"disbursed_at"`
}

func (h *ApplicationHandler) Disburse(c echo.Context) error {
	var req disburseReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	dto, err := h.uc.Disburse(c.Request().Context(), middleware.PrincipalFrom(c), application.DisburseInput{
		Number:      c.Param("number"),
		Amount:      req.Amount,
		Reference:   req.Reference,
		DisbursedAt: req.DisbursedAt,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) Schedule(c echo.Context) error {
	entries, err := h.uc.Schedule(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"application_number": c.Param("number"), "entries": entries})
}
