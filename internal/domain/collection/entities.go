package collection

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelUPI  Channel = "upi"
	ChannelNACH Channel = "nach"
)

type Status string

// Provider vocabulary is kept as-is for the terminal states.
const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusRejected
}

func NormalizeStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED", "PAID", "CAPTURED":
		return StatusSuccess
	case "FAILED", "FAILURE", "EXPIRED", "TIMEOUT":
		return StatusFailed
	case "REJECTED", "DECLINED", "BOUNCED":
		return StatusRejected
	case "SCHEDULED", "PRESENTED":
		return StatusScheduled
	}
	return StatusPending
}

// MaxClientRefLen is the partner limit on merchant reference ids.
const MaxClientRefLen = 20

var reClientRef = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)

func ValidClientRef(ref string) bool { return reClientRef.MatchString(ref) }

var (
	ErrNotFound         = apperr.NotFound("transaction_not_found", "transaction not found")
	ErrClientRefInvalid = apperr.Validation("client_ref_invalid", "client reference must be 1-20 alphanumeric characters")
	ErrClientRefReused  = apperr.Conflict("client_ref_reused", "client reference already used for another application")
	ErrStage            = apperr.State("collection_stage", "collections are only possible on disbursed applications")
	ErrAmount           = apperr.Validation("amount_invalid", "amount must be positive")
)

type Transaction struct {
	ID              uint64              `gorm:"primaryKey;column:id" json:"-"`
	OrgID           string              `gorm:"size:64;not null" json:"-"`
	ApplicationID   uint64              `gorm:"not null;index" json:"-"`
	ScheduleEntryID *uint64             `gorm:"index" json:"schedule_entry_id,omitempty"`
	MandateID       *uint64             `json:"-"`
	Channel         Channel             `gorm:"size:8;not null" json:"channel"`
	ClientRef       string              `gorm:"size:20;not null;uniqueIndex:ux_collection_client_ref" json:"client_ref"`
	ProviderRef     string              `gorm:"size:128;index" json:"provider_ref,omitempty"`
	Amount          decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"amount"`
	ConfirmedAmount decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"confirmed_amount"`
	Status          Status              `gorm:"size:16;not null" json:"status"`
	UTR             string              `gorm:"size:64" json:"utr,omitempty"`
	PayerVPA        string              `gorm:"size:255" json:"payer_vpa,omitempty"`
	QRPayload       string              `gorm:"type:text" json:"qr_payload,omitempty"`
	ProviderPayload datatypes.JSON      `json:"-"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string { return "collection_transactions" }

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Save(ctx context.Context, t *Transaction) error
	GetByClientRef(ctx context.Context, clientRef string) (*Transaction, error)
	GetByClientRefForUpdate(ctx context.Context, clientRef string) (*Transaction, error)
	GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*Transaction, error)
}

// StatusCache holds transactions that reached a terminal status. Providers
// never move a transaction out of a terminal status, so entries do not expire.
type StatusCache interface {
	Get(clientRef string) (Transaction, bool)
	Put(t Transaction)
}

type CollectInput struct {
	ClientRef string
	Amount    decimal.Decimal
	PayerVPA  string
	Note      string
	ExpiresAt time.Time
}

type CollectResult struct {
	ProviderRef string
	QRPayload   string
	Status      Status
	// Duplicate is set when the partner already knows the client reference.
	Duplicate bool
}

type StatusResult struct {
	ProviderRef     string
	Status          Status
	UTR             string
	ConfirmedAmount decimal.NullDecimal
	Raw             map[string]any
}

// UPIProvider creates dynamic collection requests and answers status polls.
type UPIProvider interface {
	CreateCollection(ctx context.Context, in CollectInput) (CollectResult, error)
	Status(ctx context.Context, clientRef string) (StatusResult, error)
}
