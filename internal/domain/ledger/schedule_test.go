package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEMI(t *testing.T) {
	cases := []struct {
		principal, rate string
		months          int
		want            string
	}{
		{"25000", "18", 12, "2292"},
		{"10000", "12", 3, "3400.22"},
		{"1200", "0", 12, "100"},
	}
	for _, c := range cases {
		got := EMI(dec(c.principal), dec(c.rate), c.months)
		if !got.Equal(dec(c.want)) {
			t.Fatalf("EMI(%s, %s, %d) = %s, want %s", c.principal, c.rate, c.months, got, c.want)
		}
	}
}

func TestGenerateSchedule_LastRowAbsorbsRounding(t *testing.T) {
	disbursed := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	rows := GenerateSchedule(dec("10000"), dec("12"), 3, disbursed)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	want := []struct{ p, i, total string }{
		{"3300.22", "100", "3400.22"},
		{"3333.22", "67", "3400.22"},
		{"3366.56", "33.67", "3400.23"},
	}
	sum := decimal.Zero
	for k, w := range want {
		r := rows[k]
		if r.InstallmentNo != k+1 {
			t.Fatalf("row %d installment = %d", k, r.InstallmentNo)
		}
		if !r.PrincipalComponent.Equal(dec(w.p)) || !r.InterestComponent.Equal(dec(w.i)) || !r.TotalEMI.Equal(dec(w.total)) {
			t.Fatalf("row %d = %s/%s/%s, want %s/%s/%s", k, r.PrincipalComponent, r.InterestComponent, r.TotalEMI, w.p, w.i, w.total)
		}
		if r.Status != EntryPending || !r.AmountPaid.IsZero() {
			t.Fatalf("row %d not fresh: %+v", k, r)
		}
		sum = sum.Add(r.PrincipalComponent)
	}
	if !sum.Equal(dec("10000")) {
		t.Fatalf("principal sum = %s, want 10000", sum)
	}
	if got := rows[0].DueDate; !got.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first due date = %v", got)
	}
}

func TestGenerateSchedule_Degenerate(t *testing.T) {
	if rows := GenerateSchedule(dec("0"), dec("12"), 12, time.Now()); rows != nil {
		t.Fatalf("zero principal should yield no rows")
	}
	if rows := GenerateSchedule(dec("1000"), dec("12"), 0, time.Now()); rows != nil {
		t.Fatalf("zero tenure should yield no rows")
	}
}

func TestDeriveStatus(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	before := due.Add(-time.Hour)
	after := due.Add(time.Hour)
	cases := []struct {
		paid, total string
		now         time.Time
		want        EntryStatus
	}{
		{"1000", "1000", after, EntryPaid},
		{"1200", "1000", before, EntryPaid},
		{"1", "1000", after, EntryPartiallyPaid},
		{"0", "1000", before, EntryPending},
		{"0", "1000", after, EntryOverdue},
	}
	for _, c := range cases {
		if got := DeriveStatus(dec(c.paid), dec(c.total), due, c.now); got != c.want {
			t.Fatalf("DeriveStatus(%s/%s) = %s, want %s", c.paid, c.total, got, c.want)
		}
	}
}

func TestSplit_UsesExistingRatio(t *testing.T) {
	e := ScheduleEntry{PrincipalComponent: dec("750"), InterestComponent: dec("250"), TotalEMI: dec("1000")}
	p, i := Split(dec("400"), e)
	if !p.Equal(dec("300")) || !i.Equal(dec("100")) {
		t.Fatalf("Split = %s/%s, want 300/100", p, i)
	}
	p, i = Split(dec("333.33"), e)
	if !p.Add(i).Equal(dec("333.33")) {
		t.Fatalf("portions must sum to amount: %s + %s", p, i)
	}
}

func TestExcess(t *testing.T) {
	e := ScheduleEntry{TotalEMI: dec("1000"), AmountPaid: dec("800")}
	if got := Excess(e, dec("100")); !got.IsZero() {
		t.Fatalf("no excess expected, got %s", got)
	}
	if got := Excess(e, dec("300")); !got.Equal(dec("100")) {
		t.Fatalf("excess = %s, want 100", got)
	}
	e.AmountPaid = dec("1000")
	if got := Excess(e, dec("50")); !got.Equal(dec("50")) {
		t.Fatalf("excess on fully paid entry = %s, want 50", got)
	}
}
