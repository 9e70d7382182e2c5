// Package nach is the e-NACH mandate and debit partner client.
package nach

import (
	"context"
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/adapter/provider"
	"github.com/EcrTech/FL-sub005/internal/domain/mandate"
)

type Client struct{ base provider.BaseProvider }

func NewClient(base provider.BaseProvider) *Client { return &Client{base: base} }

var _ mandate.Provider = (*Client)(nil)

func (c *Client) Register(ctx context.Context, in mandate.RegisterInput) (mandate.StatusResult, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodPost, "/mandates", map[string]any{
		"reference":      in.MandateRef,
		"max_amount":     in.MaxAmount.StringFixed(2),
		"frequency":      in.Frequency,
		"start_date":     in.StartDate.Format("2006-01-02"),
		"end_date":       in.EndDate.Format("2006-01-02"),
		"account_holder": in.AccountHolder,
		"account_number": in.AccountNumber,
		"ifsc":           in.IFSC,
		"mobile":         in.Phone,
		"email":          in.Email,
	}, nil)
	if err != nil {
		if rej, ok := provider.AsRejection(err); ok {
			return mandate.StatusResult{
				Status: mandate.StatusRejected,
				Reason: rej.String("message", "reason", "error"),
			}, nil
		}
		return mandate.StatusResult{}, err
	}
	res := parseStatus(f)
	if res.Status == mandate.StatusPending {
		// accepted for registration; the customer still has to authenticate
		res.Status = mandate.StatusSubmitted
	}
	return res, nil
}

func (c *Client) Status(ctx context.Context, providerRef string) (mandate.StatusResult, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodGet, "/mandates/"+providerRef, nil, nil)
	if err != nil {
		return mandate.StatusResult{}, err
	}
	res := parseStatus(f)
	if res.ProviderRef == "" {
		res.ProviderRef = providerRef
	}
	return res, nil
}

func (c *Client) Debit(ctx context.Context, in mandate.DebitInput) (mandate.DebitResult, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodPost, "/mandates/"+in.MandateProviderRef+"/debits", map[string]any{
		"reference":  in.ClientRef,
		"amount":     in.Amount.StringFixed(2),
		"debit_date": in.DueDate.Format("2006-01-02"),
	}, nil)
	if err != nil {
		return mandate.DebitResult{}, err
	}
	return mandate.DebitResult{
		ProviderRef: f.String("debit_id", "transaction_id", "reference_id", "id"),
		Status:      f.String("status"),
	}, nil
}

func (c *Client) Cancel(ctx context.Context, providerRef string) error {
	_, err := c.base.MakeRequest(ctx, http.MethodPost, "/mandates/"+providerRef+"/cancel", nil, nil)
	return err
}

func parseStatus(f provider.Fields) mandate.StatusResult {
	return mandate.StatusResult{
		ProviderRef: f.String("mandate_id", "umrn", "id", "reference_id"),
		Status:      mandate.NormalizeStatus(f.String("status", "mandate_status")),
		Reason:      f.String("reason", "reject_reason", "message"),
	}
}
