// Package upi is the dynamic-QR / UPI collect partner client.
package upi

import (
	"context"
	"net/http"
	"strings"

	"github.com/EcrTech/FL-sub005/internal/adapter/provider"
	"github.com/EcrTech/FL-sub005/internal/domain/collection"
)

type Client struct {
	base     provider.BaseProvider
	payeeVPA string
}

func NewClient(base provider.BaseProvider, payeeVPA string) *Client {
	return &Client{base: base, payeeVPA: payeeVPA}
}

var _ collection.UPIProvider = (*Client)(nil)

// CreateCollection treats the partner's duplicate-reference answer as a
// successful lookup of the original request.
func (c *Client) CreateCollection(ctx context.Context, in collection.CollectInput) (collection.CollectResult, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodPost, "/upi/collect", map[string]any{
		"merchant_ref": in.ClientRef,
		"amount":       in.Amount.StringFixed(2),
		"payee_vpa":    c.payeeVPA,
		"payer_vpa":    in.PayerVPA,
		"note":         in.Note,
		"expires_at":   in.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}, nil)
	if err != nil {
		rej, ok := provider.AsRejection(err)
		if !ok || !isDuplicate(rej) {
			return collection.CollectResult{}, err
		}
		return collection.CollectResult{
			ProviderRef: rej.String("transaction_id", "txn_id", "reference_id"),
			Status:      collection.StatusPending,
			Duplicate:   true,
		}, nil
	}
	if isDuplicate(f) {
		return collection.CollectResult{
			ProviderRef: f.String("transaction_id", "txn_id", "reference_id"),
			QRPayload:   f.String("qr_string", "intent_url", "qr"),
			Status:      collection.NormalizeStatus(f.String("status")),
			Duplicate:   true,
		}, nil
	}
	return collection.CollectResult{
		ProviderRef: f.String("transaction_id", "txn_id", "reference_id"),
		QRPayload:   f.String("qr_string", "intent_url", "qr"),
		Status:      collection.NormalizeStatus(f.String("status")),
	}, nil
}

func (c *Client) Status(ctx context.Context, clientRef string) (collection.StatusResult, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodGet, "/upi/collect/"+clientRef, nil, nil)
	if err != nil {
		return collection.StatusResult{}, err
	}
	return collection.StatusResult{
		ProviderRef:     f.String("transaction_id", "txn_id", "reference_id"),
		Status:          collection.NormalizeStatus(f.String("status", "txn_status")),
		UTR:             f.String("utr", "bank_reference", "rrn"),
		ConfirmedAmount: f.Decimal("amount_paid", "txn_amount", "amount"),
		Raw:             f.Flatten(),
	}, nil
}

func isDuplicate(f provider.Fields) bool {
	if f.Bool("duplicate", "is_duplicate") {
		return true
	}
	code := strings.ToUpper(f.String("code", "error_code", "response_code"))
	if strings.Contains(code, "DUPLICATE") {
		return true
	}
	return strings.Contains(strings.ToLower(f.String("message", "error")), "duplicate")
}
