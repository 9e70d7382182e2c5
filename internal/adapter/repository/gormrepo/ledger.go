package gormrepo

import (
	"context"
	"errors"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/ledger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleRepository struct{ db *gorm.DB }

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) CreateBatch(ctx context.Context, entries []ledger.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *ScheduleRepository) Save(ctx context.Context, e *ledger.ScheduleEntry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *ScheduleRepository) GetForUpdate(ctx context.Context, id uint64) (*ledger.ScheduleEntry, error) {
	var out ledger.ScheduleEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ScheduleRepository) ListByApplication(ctx context.Context, applicationID uint64) ([]ledger.ScheduleEntry, error) {
	var out []ledger.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("installment_no ASC").
		Find(&out).Error
	return out, err
}

func (r *ScheduleRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&ledger.ScheduleEntry{}).
		Where("status = ? AND due_date < ?", ledger.EntryPending, asOf).
		Update("status", ledger.EntryOverdue)
	return res.RowsAffected, res.Error
}

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *ledger.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) ListByScheduleEntry(ctx context.Context, entryID uint64) ([]ledger.Payment, error) {
	var out []ledger.Payment
	err := r.db.WithContext(ctx).Where("schedule_entry_id = ?", entryID).Order("id ASC").Find(&out).Error
	return out, err
}

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

// Record relies on the (source, event_key) unique index, so check and insert
// are a single statement.
func (r *EventRepository) Record(ctx context.Context, e *ledger.ProcessedEvent) error {
	err := r.db.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ledger.ErrAlreadyProcessed.WithMeta(map[string]any{"source": e.Source, "event_key": e.EventKey})
	}
	return err
}
