package application

import (
	"time"

	domain "github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"

	"github.com/shopspring/decimal"
)

type ApplicantInput struct {
	IsPrimary      bool
	FirstName      string
	LastName       string
	Phone          string
	Email          string
	PAN            string
	Aadhaar        string
	DateOfBirth    string
	Address        string
	EmploymentType string
	MonthlyIncome  decimal.Decimal
}

type CreateInput struct {
	RequestedAmount decimal.Decimal
	TenureMonths    int
	InterestRate    decimal.Decimal
	AssignedTo      string
	ContactID       *uint64
	Applicants      []ApplicantInput
}

type DecisionInput struct {
	Decision       string // approve | reject
	ApprovedAmount decimal.NullDecimal
	Reason         string
}

type DisburseInput struct {
	Number      string
	Amount      decimal.Decimal
	Reference   string
	DisbursedAt *time.Time
}

type RepeatInput struct {
	RequestedAmount decimal.Decimal
	TenureMonths    int
	InterestRate    decimal.Decimal
	AssignedTo      string
}

// ApplicationDTO is the application with its history for API responses.
type ApplicationDTO struct {
	domain.Application
	ParentApplicationNumber string                   `json:"parent_application_number,omitempty"`
	Applicants              []domain.Applicant       `json:"applicants"`
	Transitions             []domain.StageTransition `json:"transitions"`
}

type DisbursementDTO struct {
	ApplicationDTO
	Schedule []ledger.ScheduleEntry `json:"schedule"`
}

type AssignResult struct {
	ApplicationNumber string `json:"application_number"`
	AssignedTo        string `json:"assigned_to"`
	Changed           bool   `json:"changed"`
}
