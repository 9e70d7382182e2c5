package mandate

import (
	"context"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Open statuses block a second registration for the same application.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusSubmitted || s == StatusActive
}

// NormalizeStatus folds partner vocabularies into ours. Unknown values map to
// pending so that an unexpected response never activates a mandate.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "active", "accepted", "registered", "success":
		return StatusActive
	case "submitted", "initiated", "in_progress", "processing":
		return StatusSubmitted
	case "rejected", "failed", "declined", "expired":
		return StatusRejected
	case "cancelled", "canceled", "revoked":
		return StatusCancelled
	}
	return StatusPending
}

// MaxRefLen is the sponsor bank limit on mandate references.
const MaxRefLen = 20

var (
	ErrNotFound      = apperr.NotFound("mandate_not_found", "mandate not found")
	ErrDuplicate     = apperr.Conflict("duplicate_mandate", "an open mandate already exists for this application")
	ErrLimitExceeded = apperr.Conflict("mandate_limit_exceeded", "debit amount exceeds the mandate maximum")
	ErrNotActive     = apperr.State("mandate_not_active", "mandate is not active")
	ErrNotOpen       = apperr.State("mandate_closed", "mandate is already rejected or cancelled")
	ErrStage         = apperr.State("mandate_stage", "mandates can be registered once the application is sanctioned")
)

type Mandate struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	OrgID         string          `gorm:"size:64;not null" json:"-"`
	ApplicationID uint64          `gorm:"not null;index" json:"-"`
	MandateRef    string          `gorm:"size:20;not null;uniqueIndex:ux_mandates_ref" json:"mandate_ref"`
	ProviderRef   string          `gorm:"size:128;index" json:"provider_ref,omitempty"`
	Status        Status          `gorm:"size:16;not null" json:"status"`
	MaxAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"max_amount"`
	Frequency     string          `gorm:"size:16;not null" json:"frequency"`
	StartDate     time.Time       `gorm:"type:date" json:"start_date"`
	EndDate       time.Time       `gorm:"type:date" json:"end_date"`
	AccountHolder string          `gorm:"size:200;not null" json:"account_holder"`
	AccountNumber string          `gorm:"size:34;not null" json:"-"`
	IFSC          string          `gorm:"size:11;not null" json:"ifsc"`
	RejectReason  string          `gorm:"type:text" json:"reject_reason,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Mandate) TableName() string { return "nach_mandates" }

type Repository interface {
	Create(ctx context.Context, m *Mandate) error
	Save(ctx context.Context, m *Mandate) error
	GetByRefForUpdate(ctx context.Context, orgID, ref string) (*Mandate, error)
	// GetByProviderRefForUpdate is unscoped and only for signed webhook callers.
	GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*Mandate, error)
	FindOpenByApplication(ctx context.Context, applicationID uint64) (*Mandate, error)
	GetActiveByApplication(ctx context.Context, applicationID uint64) (*Mandate, error)
}

type RegisterInput struct {
	MandateRef    string
	MaxAmount     decimal.Decimal
	Frequency     string
	StartDate     time.Time
	EndDate       time.Time
	AccountHolder string
	AccountNumber string
	IFSC          string
	Phone         string
	Email         string
}

type StatusResult struct {
	ProviderRef string
	Status      Status
	Reason      string
}

type DebitInput struct {
	MandateProviderRef string
	ClientRef          string
	Amount             decimal.Decimal
	DueDate            time.Time
}

type DebitResult struct {
	ProviderRef string
	Status      string
}

// Provider is the NACH sponsor bank / aggregator.
type Provider interface {
	Register(ctx context.Context, in RegisterInput) (StatusResult, error)
	Status(ctx context.Context, providerRef string) (StatusResult, error)
	Debit(ctx context.Context, in DebitInput) (DebitResult, error)
	Cancel(ctx context.Context, providerRef string) error
}
