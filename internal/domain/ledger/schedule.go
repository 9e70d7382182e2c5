package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

var monthly = decimal.NewFromInt(1200)

// EMI is the reducing-balance instalment for principal over months at an
// annual percentage rate, rounded to paise.
func EMI(principal, annualRate decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(months))
	if !annualRate.IsPositive() {
		return principal.Div(n).Round(2)
	}
	r := annualRate.Div(monthly)
	f := decimal.NewFromInt(1).Add(r).Pow(n)
	return principal.Mul(r).Mul(f).Div(f.Sub(decimal.NewFromInt(1))).Round(2)
}

// GenerateSchedule builds the instalment rows for a disbursed amount. The
// first instalment falls due one month after disbursal and the last row
// absorbs rounding so principal components sum to the disbursed amount.
func GenerateSchedule(principal, annualRate decimal.Decimal, months int, disbursedAt time.Time) []ScheduleEntry {
	if months <= 0 || !principal.IsPositive() {
		return nil
	}
	emi := EMI(principal, annualRate, months)
	r := annualRate.Div(monthly)
	balance := principal
	start := time.Date(disbursedAt.Year(), disbursedAt.Month(), disbursedAt.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]ScheduleEntry, 0, months)
	for i := 1; i <= months; i++ {
		interest := balance.Mul(r).Round(2)
		princ := emi.Sub(interest)
		if i == months || princ.GreaterThan(balance) {
			princ = balance
		}
		balance = balance.Sub(princ)
		out = append(out, ScheduleEntry{
			InstallmentNo:      i,
			DueDate:            start.AddDate(0, i, 0),
			PrincipalComponent: princ,
			InterestComponent:  interest,
			TotalEMI:           princ.Add(interest),
			AmountPaid:         decimal.Zero,
			Status:             EntryPending,
		})
	}
	return out
}

// DeriveStatus applies paid >= total -> paid, paid > 0 -> partially_paid,
// otherwise pending, or overdue once the due date has passed.
func DeriveStatus(amountPaid, total decimal.Decimal, due, now time.Time) EntryStatus {
	switch {
	case amountPaid.GreaterThanOrEqual(total):
		return EntryPaid
	case amountPaid.IsPositive():
		return EntryPartiallyPaid
	case now.After(due):
		return EntryOverdue
	}
	return EntryPending
}

// Split divides amount by the entry's existing principal:interest ratio.
func Split(amount decimal.Decimal, e ScheduleEntry) (principal, interest decimal.Decimal) {
	if !e.TotalEMI.IsPositive() {
		return amount, decimal.Zero
	}
	principal = amount.Mul(e.PrincipalComponent).Div(e.TotalEMI).Round(2)
	return principal, amount.Sub(principal)
}

// Excess is the part of amount that takes AmountPaid beyond TotalEMI.
func Excess(e ScheduleEntry, amount decimal.Decimal) decimal.Decimal {
	over := e.AmountPaid.Add(amount).Sub(e.TotalEMI)
	if !over.IsPositive() {
		return decimal.Zero
	}
	if over.GreaterThan(amount) {
		return amount
	}
	return over
}
