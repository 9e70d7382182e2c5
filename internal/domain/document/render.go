package document

import (
	"bytes"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// Terms is the data merged into every document template.
type Terms struct {
	ApplicationNumber string
	BorrowerName      string
	Amount            decimal.Decimal
	TenureMonths      int
	AnnualRate        decimal.Decimal
	EMI               decimal.Decimal
	IssuedAt          time.Time
}

var templates = map[Type]*template.Template{
	TypeSanctionLetter: template.Must(template.New("sanction").Parse(`SANCTION LETTER
Application: {{.ApplicationNumber}}
Date: {{.IssuedAt.Format "02 Jan 2006"}}

Dear {{.BorrowerName}},

We are pleased to sanction a loan of INR {{.Amount.StringFixed 2}} for a tenure of
{{.TenureMonths}} months at {{.AnnualRate.StringFixed 2}}% per annum (reducing balance).
Your equated monthly instalment is INR {{.EMI.StringFixed 2}}.

This sanction is subject to execution of the loan agreement and registration
of a repayment mandate.
`)),
	TypeLoanAgreement: template.Must(template.New("agreement").Parse(`LOAN AGREEMENT
Application: {{.ApplicationNumber}}
Executed on: {{.IssuedAt.Format "02 Jan 2006"}}

Borrower: {{.BorrowerName}}
Principal: INR {{.Amount.StringFixed 2}}
Tenure: {{.TenureMonths}} months
Rate of interest: {{.AnnualRate.StringFixed 2}}% per annum, reducing balance
Monthly instalment: INR {{.EMI.StringFixed 2}}

The borrower agrees to repay the instalments on their due dates through the
registered NACH mandate or UPI. Late payments attract charges as per the
schedule of charges.
`)),
}

func Render(t Type, terms Terms) ([]byte, error) {
	tpl, ok := templates[t]
	if !ok {
		return nil, ErrInvalidType
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, terms); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
