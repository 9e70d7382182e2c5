package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRender_SanctionLetter(t *testing.T) {
	out, err := Render(TypeSanctionLetter, Terms{
		ApplicationNumber: "APP-20250906-ABC123",
		BorrowerName:      "Asha Rao",
		Amount:            decimal.NewFromInt(25000),
		TenureMonths:      12,
		AnnualRate:        decimal.NewFromInt(18),
		EMI:               decimal.RequireFromString("2291.99"),
		IssuedAt:          time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	for _, want := range []string{"APP-20250906-ABC123", "INR 25000.00", "12 months", "18.00%", "INR 2291.99", "06 Sep 2025"} {
		if !strings.Contains(s, want) {
			t.Fatalf("rendered letter missing %q:\n%s", want, s)
		}
	}
}

func TestRender_UnknownType(t *testing.T) {
	if _, err := Render(Type("kyc_form"), Terms{}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("want ErrInvalidType, got %v", err)
	}
}
