package http

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecimalValidation(t *testing.T) {
	type P struct {
		Amount decimal.Decimal `json:"amount" validate:"dpos,dec2"`
	}
	cv := NewValidator()

	for _, s := range []string{"1", "100000", "2500.50", "0.01"} {
		if err := cv.Validate(P{Amount: decimal.RequireFromString(s)}); err != nil {
			t.Fatalf("expected %s to pass, got %v", s, err)
		}
	}
	cases := map[string]string{
		"0":      "positive",
		"-10":    "positive",
		"10.005": "2 decimal places",
	}
	for s, msg := range cases {
		err := cv.Validate(P{Amount: decimal.RequireFromString(s)})
		if err == nil {
			t.Fatalf("expected error for %s", s)
		}
		if !containsFieldMsg(ToFieldErrors(err), "amount", msg) {
			t.Fatalf("%s: details = %+v", s, ToFieldErrors(err))
		}
	}
}

func TestIndianFormats(t *testing.T) {
	type P struct {
		IFSC  string `json:"ifsc" validate:"ifsc"`
		VPA   string `json:"vpa" validate:"vpa"`
		Phone string `json:"phone" validate:"inphone"`
		PAN   string `json:"pan" validate:"pan"`
	}
	cv := NewValidator()

	ok := P{IFSC: "hdfc0001234", VPA: "asha.rao@okhdfc", Phone: "+919876543210", PAN: "abcde1234f"}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bad := P{IFSC: "HDFC1001234", VPA: "no-at-sign", Phone: "1234567890", PAN: "ABCD1234F"}
	fe := ToFieldErrors(cv.Validate(bad))
	for field, msg := range map[string]string{
		"ifsc":  "valid IFSC",
		"vpa":   "name@bank",
		"phone": "10-digit",
		"pan":   "valid PAN",
	} {
		if !containsFieldMsg(fe, field, msg) {
			t.Fatalf("missing %s error in %+v", field, fe)
		}
	}
}

func TestToFieldErrors_JSONNamesAndFallback(t *testing.T) {
	type P struct {
		Decision string `json:"decision" validate:"required,oneof=approve reject"`
		Tenure   int    `json:"tenure_months" validate:"gte=1,lte=360"`
	}
	fe := ToFieldErrors(NewValidator().Validate(P{Decision: "maybe", Tenure: 400}))
	if !containsFieldMsg(fe, "decision", "one of: approve reject") || !containsFieldMsg(fe, "tenure_months", "less than or equal to 360") {
		t.Fatalf("details = %+v", fe)
	}

	other := ToFieldErrors(errors.New("boom"))
	if len(other) != 1 || other[0].Field != "_" || other[0].Message != "boom" {
		t.Fatalf("fallback = %+v", other)
	}
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
