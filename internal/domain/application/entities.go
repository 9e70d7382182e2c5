package application

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stage string

const (
	StageLead         Stage = "lead"
	StageDocuments    Stage = "documents"
	StageVerification Stage = "verification"
	StageAssessment   Stage = "assessment"
	StageApproval     Stage = "approval"
	StageSanctioned   Stage = "sanctioned"
	StageDisbursed    Stage = "disbursed"
	StageClosed       Stage = "closed"
	StageRejected     Stage = "rejected"
	StageCancelled    Stage = "cancelled"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusDisbursed  Status = "disbursed"
	StatusClosed     Status = "closed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

type Application struct {
	ID                   uint64          `gorm:"primaryKey;column:id" json:"-"`
	OrgID                string          `gorm:"size:64;not null;index:idx_applications_org_stage" json:"org_id"`
	ApplicationNumber    string          `gorm:"size:32;not null;uniqueIndex:ux_applications_number" json:"application_number"`
	Stage                Stage           `gorm:"size:24;not null;index:idx_applications_org_stage" json:"current_stage"`
	Status               Status          `gorm:"size:24;not null" json:"status"`
	RequestedAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"requested_amount"`
	ApprovedAmount       decimal.Decimal `gorm:"type:decimal(18,2)" json:"approved_amount"`
	DisbursedAmount      decimal.Decimal `gorm:"type:decimal(18,2)" json:"disbursed_amount"`
	OutstandingPrincipal decimal.Decimal `gorm:"type:decimal(18,2)" json:"outstanding_principal"`
	TenureMonths         int             `gorm:"not null" json:"tenure_months"`
	InterestRate         decimal.Decimal `gorm:"type:decimal(6,2)" json:"interest_rate"`
	AssignedTo           string          `gorm:"size:64;index" json:"assigned_to"`
	ParentApplicationID  *uint64         `gorm:"index" json:"-"`
	ContactID            *uint64         `gorm:"index" json:"-"`
	DecisionBy           string          `gorm:"size:64" json:"decision_by,omitempty"`
	DecisionReason       string          `gorm:"type:text" json:"decision_reason,omitempty"`
	DecidedAt            *time.Time      `json:"decided_at,omitempty"`
	DisbursementRef      string          `gorm:"size:64" json:"disbursement_ref,omitempty"`
	DisbursedAt          *time.Time      `json:"disbursed_at,omitempty"`
	CreatedBy            string          `gorm:"size:64" json:"created_by"`
	StageUpdatedAt       time.Time       `json:"stage_updated_at"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "loan_applications" }

// Applicant holds PII for the primary borrower and any co-applicants.
type Applicant struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	OrgID          string          `gorm:"size:64;not null" json:"-"`
	ApplicationID  uint64          `gorm:"not null;index" json:"-"`
	IsPrimary      bool            `gorm:"not null" json:"is_primary"`
	FirstName      string          `gorm:"size:100;not null" json:"first_name"`
	LastName       string          `gorm:"size:100" json:"last_name"`
	Phone          string          `gorm:"size:20" json:"phone"`
	Email          string          `gorm:"size:255" json:"email"`
	PAN            string          `gorm:"size:10" json:"pan"`
	Aadhaar        string          `gorm:"size:12" json:"-"`
	DateOfBirth    string          `gorm:"size:10" json:"date_of_birth"`
	Address        string          `gorm:"type:text" json:"address"`
	EmploymentType string          `gorm:"size:32" json:"employment_type"`
	MonthlyIncome  decimal.Decimal `gorm:"type:decimal(18,2)" json:"monthly_income"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"-"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"-"`
}

func (Applicant) TableName() string { return "loan_applicants" }

// CopyForRepeat clones the business fields only. Identity, ownership and
// timestamps are left for the new application to assign.
func (a Applicant) CopyForRepeat() Applicant {
	return Applicant{
		IsPrimary:      a.IsPrimary,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Phone:          a.Phone,
		Email:          a.Email,
		PAN:            a.PAN,
		Aadhaar:        a.Aadhaar,
		DateOfBirth:    a.DateOfBirth,
		Address:        a.Address,
		EmploymentType: a.EmploymentType,
		MonthlyIncome:  a.MonthlyIncome,
	}
}

// StageTransition is insert-only history of stage changes.
type StageTransition struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	OrgID         string    `gorm:"size:64;not null" json:"-"`
	ApplicationID uint64    `gorm:"not null;index" json:"-"`
	FromStage     Stage     `gorm:"size:24" json:"from_stage"`
	ToStage       Stage     `gorm:"size:24;not null" json:"to_stage"`
	Actor         string    `gorm:"size:64;not null" json:"actor"`
	Note          string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"at"`
}

func (StageTransition) TableName() string { return "application_stage_transitions" }
