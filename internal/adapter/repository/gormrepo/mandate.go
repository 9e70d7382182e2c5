package gormrepo

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/mandate"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MandateRepository struct{ db *gorm.DB }

func NewMandateRepository(db *gorm.DB) *MandateRepository { return &MandateRepository{db: db} }

func (r *MandateRepository) Create(ctx context.Context, m *mandate.Mandate) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MandateRepository) Save(ctx context.Context, m *mandate.Mandate) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MandateRepository) GetByRefForUpdate(ctx context.Context, orgID, ref string) (*mandate.Mandate, error) {
	var out mandate.Mandate
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND mandate_ref = ?", orgID, ref).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MandateRepository) GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*mandate.Mandate, error) {
	var out mandate.Mandate
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_ref = ? OR mandate_ref = ?", providerRef, providerRef).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MandateRepository) FindOpenByApplication(ctx context.Context, applicationID uint64) (*mandate.Mandate, error) {
	var out mandate.Mandate
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND status IN ?", applicationID,
			[]mandate.Status{mandate.StatusPending, mandate.StatusSubmitted, mandate.StatusActive}).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MandateRepository) GetActiveByApplication(ctx context.Context, applicationID uint64) (*mandate.Mandate, error) {
	var out mandate.Mandate
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND status = ?", applicationID, mandate.StatusActive).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
