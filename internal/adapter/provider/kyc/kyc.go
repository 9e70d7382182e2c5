// Package kyc adapts the identity and bank verification partners to the
// verification.Adapter port.
package kyc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/EcrTech/FL-sub005/internal/adapter/provider"
	"github.com/EcrTech/FL-sub005/internal/domain/verification"
)

type Client struct {
	base provider.BaseProvider
}

func NewClient(base provider.BaseProvider) *Client { return &Client{base: base} }

// Adapters returns one adapter per verification type. Bank verification
// may use a different partner, so it takes its own client.
func Adapters(identity, bank *Client) []verification.Adapter {
	return []verification.Adapter{
		&PANAdapter{c: identity},
		&AadhaarAdapter{c: identity},
		&BankAccountAdapter{c: bank},
		&VideoKYCAdapter{c: identity},
		&FraudCheckAdapter{c: identity},
	}
}

// call maps transport outcomes onto the adapter contract.
func (c *Client) call(ctx context.Context, path string, body any) (provider.Fields, *verification.Result, error) {
	f, err := c.base.MakeRequest(ctx, http.MethodPost, path, body, nil)
	if err == nil {
		return f, nil, nil
	}
	if rej, ok := provider.AsRejection(err); ok {
		res := failed(messageOf(rej, "rejected by provider"))
		res.Data = rej.Flatten()
		return nil, &res, nil
	}
	if errors.Is(err, provider.ErrUnavailable) {
		return nil, nil, verification.ErrProviderUnavailable.Wrap(err)
	}
	return nil, nil, err
}

func failed(msg string) verification.Result {
	return verification.Result{
		Status:    verification.StatusFailed,
		ErrorKind: verification.ErrorKindVerificationFailed,
		Message:   msg,
	}
}

func messageOf(f provider.Fields, fallback string) string {
	if m := f.String("message", "error_message", "error", "reason", "remarks"); m != "" {
		return m
	}
	return fallback
}

func require(req verification.Request, keys ...string) error {
	for _, k := range keys {
		if req.Get(k) == "" {
			return verification.ErrMissingField.Msg("%s is required", k).WithMeta(map[string]any{"field": k})
		}
	}
	return nil
}

func isValid(status string) bool {
	switch strings.ToUpper(status) {
	case "VALID", "SUCCESS", "VERIFIED", "ACTIVE", "APPROVED", "MATCH":
		return true
	}
	return false
}

type PANAdapter struct{ c *Client }

func (a *PANAdapter) Type() verification.Type { return verification.TypePAN }

func (a *PANAdapter) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	if err := require(req, "pan"); err != nil {
		return verification.Result{}, err
	}
	body := map[string]string{
		"pan":             strings.ToUpper(req.Get("pan")),
		"name_as_per_pan": req.Get("name"),
		"date_of_birth":   req.Get("date_of_birth"),
	}
	f, rejected, err := a.c.call(ctx, "/kyc/pan/verify", body)
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	if !isValid(f.String("status", "pan_status")) {
		res := failed(messageOf(f, "PAN is not valid"))
		res.Data = f.Flatten()
		return res, nil
	}
	if req.Get("name") != "" {
		if _, present := f.Lookup("name_match", "name_as_per_pan_match"); present && !f.Bool("name_match", "name_as_per_pan_match") {
			res := failed("name does not match PAN records")
			res.Data = f.Flatten()
			return res, nil
		}
	}
	return verification.Result{
		Status:      verification.StatusSuccess,
		ProviderRef: f.String("reference_id", "request_id", "transaction_id"),
		Data: map[string]any{
			"pan":             strings.ToUpper(req.Get("pan")),
			"name":            f.String("registered_name", "full_name", "name"),
			"category":        f.String("category", "pan_type"),
			"aadhaar_seeding": f.String("aadhaar_seeding_status", "aadhaar_linked"),
		},
	}, nil
}

// AadhaarAdapter is two-phase: without an otp it starts an OTP session and
// reports pending with the session reference; with an otp it completes it.
type AadhaarAdapter struct{ c *Client }

func (a *AadhaarAdapter) Type() verification.Type { return verification.TypeAadhaar }

func (a *AadhaarAdapter) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	if req.Get("otp") == "" {
		if err := require(req, "aadhaar_number"); err != nil {
			return verification.Result{}, err
		}
		f, rejected, err := a.c.call(ctx, "/kyc/aadhaar/otp", map[string]string{
			"aadhaar_number": req.Get("aadhaar_number"),
			"consent":        "Y",
		})
		if err != nil || rejected != nil {
			return deref(rejected), err
		}
		ref := f.String("reference_id", "ref_id", "request_id", "transaction_id")
		if ref == "" {
			res := failed(messageOf(f, "OTP could not be sent"))
			return res, nil
		}
		return verification.Result{
			Status:      verification.StatusPending,
			ProviderRef: ref,
			Data:        map[string]any{"otp_sent": true},
		}, nil
	}

	if req.ProviderRef == "" {
		return verification.Result{}, verification.ErrOTPSessionMissing
	}
	f, rejected, err := a.c.call(ctx, "/kyc/aadhaar/otp/verify", map[string]string{
		"reference_id": req.ProviderRef,
		"otp":          req.Get("otp"),
	})
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	if !isValid(f.String("status")) {
		res := failed(messageOf(f, "Aadhaar OTP verification failed"))
		res.ProviderRef = req.ProviderRef
		return res, nil
	}
	return verification.Result{
		Status:      verification.StatusSuccess,
		ProviderRef: req.ProviderRef,
		Data: map[string]any{
			"name":          f.String("name", "full_name"),
			"date_of_birth": f.String("dob", "date_of_birth"),
			"gender":        f.String("gender"),
			"address":       f.String("full_address", "address"),
		},
	}, nil
}

// BankAccountAdapter runs a penny-drop after repairing the IFSC.
type BankAccountAdapter struct{ c *Client }

func (a *BankAccountAdapter) Type() verification.Type { return verification.TypeBankAccount }

func (a *BankAccountAdapter) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	if err := require(req, "account_number", "ifsc"); err != nil {
		return verification.Result{}, err
	}
	ifsc, err := verification.NormalizeIFSC(req.Get("ifsc"))
	if err != nil {
		return verification.Result{}, err
	}
	f, rejected, err := a.c.call(ctx, "/bank-account/verify", map[string]string{
		"bank_account": req.Get("account_number"),
		"ifsc":         ifsc,
		"name":         req.Get("account_holder"),
	})
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	exists := f.Bool("account_exists", "is_valid", "valid")
	if !exists && isValid(f.String("status", "account_status")) {
		exists = true
	}
	if !exists {
		res := failed(messageOf(f, "bank account could not be verified"))
		res.Data = map[string]any{"ifsc": ifsc}
		return res, nil
	}
	return verification.Result{
		Status:      verification.StatusSuccess,
		ProviderRef: f.String("utr", "reference_id", "transaction_id"),
		Data: map[string]any{
			"ifsc":         ifsc,
			"name_at_bank": f.String("name_at_bank", "beneficiary_name", "registered_name"),
			"bank_name":    f.String("bank_name", "bank"),
		},
	}, nil
}

type VideoKYCAdapter struct{ c *Client }

func (a *VideoKYCAdapter) Type() verification.Type { return verification.TypeVideoKYC }

func (a *VideoKYCAdapter) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	if err := require(req, "video_url"); err != nil {
		return verification.Result{}, err
	}
	f, rejected, err := a.c.call(ctx, "/kyc/video", map[string]string{
		"video_url": req.Get("video_url"),
		"reference": req.ApplicationNumber,
	})
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	if !isValid(f.String("status", "liveness_status")) {
		res := failed(messageOf(f, "video KYC not accepted"))
		res.Data = f.Flatten()
		return res, nil
	}
	return verification.Result{
		Status:      verification.StatusSuccess,
		ProviderRef: f.String("reference_id", "session_id"),
		Data:        map[string]any{"liveness_score": f.String("liveness_score", "score")},
	}, nil
}

type FraudCheckAdapter struct{ c *Client }

func (a *FraudCheckAdapter) Type() verification.Type { return verification.TypeFraudCheck }

func (a *FraudCheckAdapter) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	if req.Get("pan") == "" && req.Get("phone") == "" {
		return verification.Result{}, verification.ErrMissingField.Msg("pan or phone is required")
	}
	f, rejected, err := a.c.call(ctx, "/risk/fraud-check", map[string]string{
		"pan":   strings.ToUpper(req.Get("pan")),
		"phone": req.Get("phone"),
		"email": req.Get("email"),
	})
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	data := map[string]any{
		"risk_score": f.String("risk_score", "score"),
		"decision":   f.String("decision", "recommendation"),
	}
	if strings.EqualFold(f.String("decision", "recommendation"), "decline") || f.Bool("is_fraud", "fraud_flag") {
		res := failed(messageOf(f, "fraud screening declined"))
		res.Data = data
		return res, nil
	}
	return verification.Result{
		Status:      verification.StatusSuccess,
		ProviderRef: f.String("reference_id", "request_id"),
		Data:        data,
	}, nil
}

func deref(r *verification.Result) verification.Result {
	if r == nil {
		return verification.Result{}
	}
	return *r
}
