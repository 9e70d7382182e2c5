package gormrepo

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/contact"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactRepository struct{ db *gorm.DB }

func NewContactRepository(db *gorm.DB) *ContactRepository { return &ContactRepository{db: db} }

func (r *ContactRepository) Create(ctx context.Context, c *contact.Contact) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContactRepository) ListByIDs(ctx context.Context, ids []uint64) ([]contact.Contact, error) {
	var out []contact.Contact
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *ContactRepository) ListByBatch(ctx context.Context, batchID uint64) ([]contact.Contact, error) {
	var out []contact.Contact
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("id ASC").Find(&out).Error
	return out, err
}

// DeleteByIDs keeps the org predicate even after callers re-validate.
func (r *ContactRepository) DeleteByIDs(ctx context.Context, orgID string, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Delete(&contact.Contact{})
	return res.RowsAffected, res.Error
}

type BatchRepository struct{ db *gorm.DB }

func NewBatchRepository(db *gorm.DB) *BatchRepository { return &BatchRepository{db: db} }

func (r *BatchRepository) Create(ctx context.Context, b *contact.ImportBatch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BatchRepository) Save(ctx context.Context, b *contact.ImportBatch) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BatchRepository) GetByBatchID(ctx context.Context, orgID, batchID string) (*contact.ImportBatch, error) {
	var out contact.ImportBatch
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND batch_id = ?", orgID, batchID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BatchRepository) GetByBatchIDForUpdate(ctx context.Context, orgID, batchID string) (*contact.ImportBatch, error) {
	var out contact.ImportBatch
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND batch_id = ?", orgID, batchID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BatchRepository) Status(ctx context.Context, id uint64) (contact.BatchStatus, error) {
	var out contact.ImportBatch
	err := r.db.WithContext(ctx).Select("id", "status").Where("id = ?", id).First(&out).Error
	return out.Status, err
}

func (r *BatchRepository) SaveProgress(ctx context.Context, b *contact.ImportBatch) error {
	return r.db.WithContext(ctx).Model(&contact.ImportBatch{ID: b.ID}).
		Select("total_rows", "processed_rows", "created_count", "applications_created", "failed_count", "errors").
		Updates(map[string]any{
			"total_rows":           b.TotalRows,
			"processed_rows":       b.ProcessedRows,
			"created_count":        b.CreatedCount,
			"applications_created": b.ApplicationsCreated,
			"failed_count":         b.FailedCount,
			"errors":               b.Errors,
		}).Error
}

func (r *BatchRepository) SetStatus(ctx context.Context, id uint64, to contact.BatchStatus, from ...contact.BatchStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&contact.ImportBatch{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Update("status", to)
	return res.RowsAffected == 1, res.Error
}
