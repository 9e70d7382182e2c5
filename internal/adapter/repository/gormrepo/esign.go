package gormrepo

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/document"
	"github.com/EcrTech/FL-sub005/internal/domain/esign"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ESignRepository struct{ db *gorm.DB }

func NewESignRepository(db *gorm.DB) *ESignRepository { return &ESignRepository{db: db} }

func (r *ESignRepository) Create(ctx context.Context, req *esign.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *ESignRepository) Save(ctx context.Context, req *esign.Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *ESignRepository) GetByID(ctx context.Context, id uint64) (*esign.Request, error) {
	var out esign.Request
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ESignRepository) GetByTokenForUpdate(ctx context.Context, token string) (*esign.Request, error) {
	var out esign.Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("access_token = ?", token).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ESignRepository) GetLatest(ctx context.Context, applicationID uint64, docType document.Type) (*esign.Request, error) {
	var out esign.Request
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND document_type = ?", applicationID, docType).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOpenExpired finds created/otp_sent requests whose token has lapsed.
func (r *ESignRepository) ListOpenExpired(ctx context.Context, now time.Time, limit int) ([]esign.Request, error) {
	var out []esign.Request
	err := r.db.WithContext(ctx).
		Where("status IN ? AND token_expires_at <= ?", []esign.Status{esign.StatusCreated, esign.StatusOTPSent}, now).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AppendAudit only inserts; audit rows are never updated or deleted.
func (r *ESignRepository) AppendAudit(ctx context.Context, e *esign.AuditEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ESignRepository) ListAudit(ctx context.Context, requestID uint64) ([]esign.AuditEvent, error) {
	var out []esign.AuditEvent
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
