package storage

import (
	"context"
	"errors"

	"github.com/EcrTech/FL-sub005/internal/domain/document"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore keeps documents in the document_blobs table when no bucket is set.
type DBStore struct{ db *gorm.DB }

var _ document.Store = (*DBStore)(nil)

func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Put(ctx context.Context, key, contentType string, content []byte) error {
	b := &document.Blob{Key: key, ContentType: contentType, Content: content}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(b).Error
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var b document.Blob
	err := s.db.WithContext(ctx).Where(&document.Blob{Key: key}).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b.Content, nil
}
