package gormrepo

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/document"

	"gorm.io/gorm"
)

type DocumentRepository struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) *DocumentRepository { return &DocumentRepository{db: db} }

func (r *DocumentRepository) Create(ctx context.Context, d *document.GeneratedDocument) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepository) Save(ctx context.Context, d *document.GeneratedDocument) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint64) (*document.GeneratedDocument, error) {
	var out document.GeneratedDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLatest returns the newest rendition of a document type.
func (r *DocumentRepository) GetLatest(ctx context.Context, applicationID uint64, t document.Type) (*document.GeneratedDocument, error) {
	var out document.GeneratedDocument
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND document_type = ?", applicationID, t).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
