package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/usecase/application"
	"github.com/EcrTech/FL-sub005/internal/usecase/collection"
	"github.com/EcrTech/FL-sub005/internal/usecase/mandate"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// WebhookHandler receives signed partner callbacks. Signatures are checked
// by middleware.VerifySignature before these run. Redelivery is safe: every
// usecase behind them ignores events it has already applied.
type WebhookHandler struct {
	apps        *application.Usecase
	mandates    *mandate.Usecase
	collections *collection.Usecase
	log         logrus.FieldLogger
}

func NewWebhookHandler(apps *application.Usecase, m *mandate.Usecase, col *collection.Usecase, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{apps: apps, mandates: m, collections: col, log: log}
}

type paymentEvent struct {
	ProviderRef string              `json:"provider_ref"`
	ClientRef   string              `json:"client_ref"`
	Status      string              `json:"status"`
	UTR         string              `json:"utr"`
	Amount      decimal.NullDecimal `json:"amount"`
}

func (h *WebhookHandler) UPI(c echo.Context) error { return h.payment(c, "upi") }

func (h *WebhookHandler) NACHDebit(c echo.Context) error { return h.payment(c, "nach_debit") }

func (h *WebhookHandler) payment(c echo.Context, source string) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	var ev paymentEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return respondError(c, h.log, errMalformedBody)
	}
	res, err := h.collections.ApplyEvent(c.Request().Context(), collection.Event{
		ProviderRef:     ev.ProviderRef,
		ClientRef:       ev.ClientRef,
		Status:          ev.Status,
		UTR:             ev.UTR,
		ConfirmedAmount: ev.Amount,
		Raw:             raw,
	})
	if err != nil {
		h.unmatched(source, err, logrus.Fields{"provider_ref": ev.ProviderRef, "client_ref": ev.ClientRef})
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type mandateEvent struct {
	ProviderRef string `json:"provider_ref"`
	MandateRef  string `json:"mandate_ref"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

func (h *WebhookHandler) NACHMandate(c echo.Context) error {
	var ev mandateEvent
	if err := c.Bind(&ev); err != nil {
		return respondError(c, h.log, errMalformedBody)
	}
	m, changed, err := h.mandates.ApplyEvent(c.Request().Context(), mandate.Event(ev))
	if err != nil {
		h.unmatched("nach_mandate", err, logrus.Fields{"provider_ref": ev.ProviderRef, "mandate_ref": ev.MandateRef})
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"mandate": m, "applied": changed})
}

type disbursementEvent struct {
	ApplicationNumber string          `json:"application_number" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"dpos"`
	Reference         string          `json:"reference" validate:"required"`
	DisbursedAt       *time.Time      `json:"disbursed_at"`
}

func (h *WebhookHandler) Disbursement(c echo.Context) error {
	var ev disbursementEvent
	if err := bindAndValidate(c, &ev); err != nil {
		return respondError(c, h.log, err)
	}
	dto, err := h.apps.DisburseFromWebhook(c.Request().Context(), application.DisburseInput{
		Number:      ev.ApplicationNumber,
		Amount:      ev.Amount,
		Reference:   ev.Reference,
		DisbursedAt: ev.DisbursedAt,
	})
	if err != nil {
		h.unmatched("disbursement", err, logrus.Fields{"application_number": ev.ApplicationNumber, "reference": ev.Reference})
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// unmatched warns about callbacks that name nothing we know, so partner
// misrouting shows up in logs rather than only as a 404 on their side.
func (h *WebhookHandler) unmatched(source string, err error, f logrus.Fields) {
	if apperr.KindOf(err) == apperr.KindNotFound {
		h.log.WithFields(f).WithField("source", source).Warn("webhook references unknown record")
	}
}
