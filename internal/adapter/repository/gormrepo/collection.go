package gormrepo

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/collection"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollectionRepository struct{ db *gorm.DB }

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) Create(ctx context.Context, t *collection.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *CollectionRepository) Save(ctx context.Context, t *collection.Transaction) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *CollectionRepository) GetByClientRef(ctx context.Context, clientRef string) (*collection.Transaction, error) {
	var out collection.Transaction
	if err := r.db.WithContext(ctx).Where("client_ref = ?", clientRef).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CollectionRepository) GetByClientRefForUpdate(ctx context.Context, clientRef string) (*collection.Transaction, error) {
	var out collection.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_ref = ?", clientRef).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByProviderRefForUpdate matches either our reference or the partner's,
// since webhooks echo whichever the partner indexes on.
func (r *CollectionRepository) GetByProviderRefForUpdate(ctx context.Context, providerRef string) (*collection.Transaction, error) {
	var out collection.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_ref = ? OR client_ref = ?", providerRef, providerRef).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
