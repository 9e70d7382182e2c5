package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/provider"
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/domain/verification"

	"github.com/sirupsen/logrus"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewClient(provider.NewBaseProvider("kyc", srv.URL, "key", time.Second, l))
}

func TestPAN_SuccessWithPascalCaseResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Data":{"Status":"VALID","NameMatch":true,"RegisteredName":"ASHA RAO","ReferenceId":"P-1"}}`))
	})
	res, err := (&PANAdapter{c: c}).Verify(context.Background(), verification.Request{
		Fields: map[string]string{"pan": "abcde1234f", "name": "Asha Rao"},
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Status != verification.StatusSuccess || res.ProviderRef != "P-1" || res.Data["name"] != "ASHA RAO" {
		t.Fatalf("result = %+v", res)
	}
}

func TestPAN_NameMismatchFails(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"VALID","name_match":"no"}`))
	})
	res, err := (&PANAdapter{c: c}).Verify(context.Background(), verification.Request{
		Fields: map[string]string{"pan": "ABCDE1234F", "name": "Someone Else"},
	})
	if err != nil || res.Status != verification.StatusFailed || res.ErrorKind != verification.ErrorKindVerificationFailed {
		t.Fatalf("result = %+v, %v", res, err)
	}
}

func TestPAN_MissingInput(t *testing.T) {
	c := newClient(t, func(http.ResponseWriter, *http.Request) { t.Errorf("provider must not be called") })
	_, err := (&PANAdapter{c: c}).Verify(context.Background(), verification.Request{Fields: map[string]string{}})
	if !errors.Is(err, verification.ErrMissingField) {
		t.Fatalf("want ErrMissingField, got %v", err)
	}
}

func TestAadhaar_TwoPhase(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		switch r.URL.Path {
		case "/kyc/aadhaar/otp":
			_, _ = w.Write([]byte(`{"result":{"ref_id":"OTP-9"}}`))
		case "/kyc/aadhaar/otp/verify":
			if in["reference_id"] != "OTP-9" || in["otp"] != "123456" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Invalid OTP"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"VALID","name":"Asha Rao","dob":"1990-01-01"}`))
		}
	})
	a := &AadhaarAdapter{c: c}
	ctx := context.Background()

	res, err := a.Verify(ctx, verification.Request{Fields: map[string]string{"aadhaar_number": "123412341234"}})
	if err != nil || res.Status != verification.StatusPending || res.ProviderRef != "OTP-9" {
		t.Fatalf("otp phase = %+v, %v", res, err)
	}

	res, err = a.Verify(ctx, verification.Request{ProviderRef: "OTP-9", Fields: map[string]string{"otp": "000000"}})
	if err != nil || res.Status != verification.StatusFailed || res.Message != "Invalid OTP" {
		t.Fatalf("wrong otp = %+v, %v", res, err)
	}

	res, err = a.Verify(ctx, verification.Request{ProviderRef: "OTP-9", Fields: map[string]string{"otp": "123456"}})
	if err != nil || res.Status != verification.StatusSuccess || res.Data["date_of_birth"] != "1990-01-01" {
		t.Fatalf("verify phase = %+v, %v", res, err)
	}
}

func TestAadhaar_OTPWithoutSession(t *testing.T) {
	c := newClient(t, func(http.ResponseWriter, *http.Request) { t.Errorf("provider must not be called") })
	_, err := (&AadhaarAdapter{c: c}).Verify(context.Background(), verification.Request{Fields: map[string]string{"otp": "1"}})
	if !errors.Is(err, verification.ErrOTPSessionMissing) {
		t.Fatalf("want ErrOTPSessionMissing, got %v", err)
	}
}

func TestBankAccount_NormalizesIFSCBeforeDispatch(t *testing.T) {
	var sent string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		sent = in["ifsc"]
		_, _ = w.Write([]byte(`{"account_exists":true,"name_at_bank":"ASHA RAO","utr":"UTR1"}`))
	})
	res, err := (&BankAccountAdapter{c: c}).Verify(context.Background(), verification.Request{
		Fields: map[string]string{"account_number": "00012345678", "ifsc": "hdfcO001234"},
	})
	if err != nil || res.Status != verification.StatusSuccess {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if sent != "HDFC0001234" {
		t.Fatalf("ifsc sent = %q, want HDFC0001234", sent)
	}
}

func TestBankAccount_InvalidIFSCNotDispatched(t *testing.T) {
	c := newClient(t, func(http.ResponseWriter, *http.Request) { t.Errorf("provider must not be called") })
	_, err := (&BankAccountAdapter{c: c}).Verify(context.Background(), verification.Request{
		Fields: map[string]string{"account_number": "1", "ifsc": "BAD"},
	})
	if !errors.Is(err, verification.ErrInvalidIFSC) {
		t.Fatalf("want ErrInvalidIFSC, got %v", err)
	}
}

func TestProviderDownIsProviderError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := (&FraudCheckAdapter{c: c}).Verify(context.Background(), verification.Request{Fields: map[string]string{"pan": "ABCDE1234F"}})
	if !errors.Is(err, verification.ErrProviderUnavailable) || apperr.KindOf(err) != apperr.KindProvider {
		t.Fatalf("want provider unavailable, got %v", err)
	}
}

func TestFraudCheck_DeclineFails(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"decision":"DECLINE","risk_score":91}`))
	})
	res, err := (&FraudCheckAdapter{c: c}).Verify(context.Background(), verification.Request{Fields: map[string]string{"phone": "9876543210"}})
	if err != nil || res.Status != verification.StatusFailed || res.Data["risk_score"] != "91" {
		t.Fatalf("result = %+v, %v", res, err)
	}
}

func TestAdapters_CoverEveryType(t *testing.T) {
	reg := verification.NewRegistry(Adapters(&Client{}, &Client{})...)
	for _, ty := range []verification.Type{verification.TypePAN, verification.TypeAadhaar, verification.TypeBankAccount, verification.TypeVideoKYC, verification.TypeFraudCheck} {
		if _, err := reg.Get(ty); err != nil {
			t.Fatalf("no adapter for %s", ty)
		}
	}
}
