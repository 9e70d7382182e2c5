// Package esign is the Aadhaar eSign partner client.
package esign

import (
	"context"
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/adapter/provider"
	domain "github.com/EcrTech/FL-sub005/internal/domain/esign"
)

type Client struct{ base provider.BaseProvider }

func NewClient(base provider.BaseProvider) *Client { return &Client{base: base} }

var _ domain.Provider = (*Client)(nil)

func (c *Client) SendOTP(ctx context.Context, in domain.OTPSession) (string, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodPost, "/esign/otp", map[string]string{
		"aadhaar_number": in.AadhaarNumber,
		"document_id":    in.DocumentKey,
		"signer_name":    in.SignerName,
		"consent":        "Y",
	}, nil)
	if err != nil {
		if rej, ok := provider.AsRejection(err); ok {
			return "", domain.ErrInvalidAadhaar.Msg("%s", firstNonEmpty(rej.String("message", "error"), "aadhaar rejected by eSign provider"))
		}
		return "", err
	}
	ref := f.String("reference_id", "transaction_id", "txn_id", "request_id")
	if ref == "" {
		return "", provider.ErrUnavailable.Msg("eSign provider returned no reference")
	}
	return ref, nil
}

// VerifyOTP reports false for a wrong OTP; errors mean the provider could
// not give an answer.
func (c *Client) VerifyOTP(ctx context.Context, providerRef, otp string) (bool, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodPost, "/esign/otp/verify", map[string]string{
		"reference_id": providerRef,
		"otp":          otp,
	}, nil)
	if err != nil {
		if _, ok := provider.AsRejection(err); ok {
			return false, nil
		}
		return false, err
	}
	if f.Bool("signed", "verified", "success") {
		return true, nil
	}
	switch f.String("status") {
	case "SIGNED", "signed", "SUCCESS", "success", "VERIFIED", "verified":
		return true, nil
	}
	return false, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
