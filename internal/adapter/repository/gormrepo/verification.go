package gormrepo

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/verification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationRepository struct{ db *gorm.DB }

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Create(ctx context.Context, rec *verification.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *VerificationRepository) Save(ctx context.Context, rec *verification.Record) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *VerificationRepository) GetForUpdate(ctx context.Context, applicationID uint64, t verification.Type) (*verification.Record, error) {
	var out verification.Record
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ? AND type = ?", applicationID, t).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *VerificationRepository) ListByApplication(ctx context.Context, applicationID uint64) ([]verification.Record, error) {
	var out []verification.Record
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("type ASC").
		Find(&out).Error
	return out, err
}
