package document

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
)

type Type string

const (
	TypeSanctionLetter Type = "sanction_letter"
	TypeLoanAgreement  Type = "loan_agreement"
)

func (t Type) Valid() bool { return t == TypeSanctionLetter || t == TypeLoanAgreement }

var (
	ErrNotFound      = apperr.NotFound("document_not_found", "document not found")
	ErrInvalidType   = apperr.Validation("document_type_invalid", "document type must be sanction_letter or loan_agreement")
	ErrNotSanctioned = apperr.State("document_stage", "documents can be generated once the application is sanctioned")
)

type GeneratedDocument struct {
	ID             uint64     `gorm:"primaryKey;column:id" json:"-"`
	OrgID          string     `gorm:"size:64;not null" json:"-"`
	ApplicationID  uint64     `gorm:"not null;index:idx_documents_app_type" json:"-"`
	DocumentType   Type       `gorm:"size:32;not null;index:idx_documents_app_type" json:"document_type"`
	StorageKey     string     `gorm:"size:255;not null" json:"storage_key"`
	ContentHash    string     `gorm:"size:64;not null" json:"content_hash"`
	CustomerSigned bool       `gorm:"not null;default:false" json:"customer_signed"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GeneratedDocument) TableName() string { return "generated_documents" }

// Blob backs the in-database document store.
type Blob struct {
	Key         string    `gorm:"primaryKey;size:255"`
	ContentType string    `gorm:"size:64"`
	Content     []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Blob) TableName() string { return "document_blobs" }

type Repository interface {
	Create(ctx context.Context, d *GeneratedDocument) error
	Save(ctx context.Context, d *GeneratedDocument) error
	GetByID(ctx context.Context, id uint64) (*GeneratedDocument, error)
	GetLatest(ctx context.Context, applicationID uint64, t Type) (*GeneratedDocument, error)
}

// Store persists rendered document bytes.
type Store interface {
	Put(ctx context.Context, key, contentType string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
