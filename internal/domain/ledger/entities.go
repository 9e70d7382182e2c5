package ledger

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryPending       EntryStatus = "pending"
	EntryPartiallyPaid EntryStatus = "partially_paid"
	EntryPaid          EntryStatus = "paid"
	EntryOverdue       EntryStatus = "overdue"
)

var (
	ErrAlreadyProcessed = apperr.Conflict("already_processed", "event already processed")
	ErrEntryNotFound    = apperr.NotFound("schedule_entry_not_found", "schedule entry not found")
	ErrNoLinkedEntry    = apperr.State("schedule_entry_unlinked", "transaction is not linked to a schedule entry")
)

// ScheduleEntry is one EMI installment. AmountPaid only ever grows.
type ScheduleEntry struct {
	ID                 uint64          `gorm:"primaryKey;column:id" json:"id"`
	OrgID              string          `gorm:"size:64;not null" json:"-"`
	ApplicationID      uint64          `gorm:"not null;uniqueIndex:ux_schedule_app_installment" json:"-"`
	InstallmentNo      int             `gorm:"not null;uniqueIndex:ux_schedule_app_installment" json:"installment_no"`
	DueDate            time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	PrincipalComponent decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"principal_component"`
	InterestComponent  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"interest_component"`
	TotalEMI           decimal.Decimal `gorm:"column:total_emi;type:decimal(18,2);not null" json:"total_emi"`
	AmountPaid         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount_paid"`
	Status             EntryStatus     `gorm:"size:16;not null;index" json:"status"`
	DebitReference     string          `gorm:"size:64" json:"debit_reference,omitempty"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"-"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"-"`
}

func (ScheduleEntry) TableName() string { return "repayment_schedule" }

// Payment is an immutable ledger line against one schedule entry.
type Payment struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	OrgID            string          `gorm:"size:64;not null" json:"-"`
	ApplicationID    uint64          `gorm:"not null;index" json:"-"`
	ScheduleEntryID  uint64          `gorm:"not null;index" json:"schedule_entry_id"`
	TransactionID    *uint64         `json:"-"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	PrincipalPortion decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"principal_portion"`
	InterestPortion  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"interest_portion"`
	ExcessAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"excess_amount"`
	Reference        string          `gorm:"size:64" json:"reference"`
	Source           string          `gorm:"size:16;not null" json:"source"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// ProcessedEvent records every side-effecting external event exactly once.
type ProcessedEvent struct {
	ID        uint64    `gorm:"primaryKey;column:id"`
	Source    string    `gorm:"size:32;not null;uniqueIndex:ux_processed_events_source_key"`
	EventKey  string    `gorm:"size:191;not null;uniqueIndex:ux_processed_events_source_key"`
	OrgID     string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }

type ScheduleRepository interface {
	CreateBatch(ctx context.Context, entries []ScheduleEntry) error
	Save(ctx context.Context, e *ScheduleEntry) error
	GetForUpdate(ctx context.Context, id uint64) (*ScheduleEntry, error)
	ListByApplication(ctx context.Context, applicationID uint64) ([]ScheduleEntry, error)
	// MarkOverdue flips pending rows whose due date is before asOf.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByScheduleEntry(ctx context.Context, entryID uint64) ([]Payment, error)
}

type EventRepository interface {
	// Record returns ErrAlreadyProcessed when (source, key) exists.
	Record(ctx context.Context, e *ProcessedEvent) error
}
