package gormrepo

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/application"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *application.Application) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByNumber(ctx context.Context, orgID, number string) (*application.Application, error) {
	var out application.Application
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND application_number = ?", orgID, number).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApplicationRepository) GetByNumberForUpdate(ctx context.Context, orgID, number string) (*application.Application, error) {
	var out application.Application
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND application_number = ?", orgID, number).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id uint64) (*application.Application, error) {
	var out application.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApplicationRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*application.Application, error) {
	var out application.Application
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApplicationRepository) FindByNumber(ctx context.Context, number string) (*application.Application, error) {
	var out application.Application
	if err := r.db.WithContext(ctx).Where("application_number = ?", number).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApplicationRepository) CreateApplicant(ctx context.Context, ap *application.Applicant) error {
	return r.db.WithContext(ctx).Create(ap).Error
}

func (r *ApplicationRepository) ListApplicants(ctx context.Context, applicationID uint64) ([]application.Applicant, error) {
	var out []application.Applicant
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("is_primary DESC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *ApplicationRepository) AddTransition(ctx context.Context, t *application.StageTransition) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ApplicationRepository) ListTransitions(ctx context.Context, applicationID uint64) ([]application.StageTransition, error) {
	var out []application.StageTransition
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
