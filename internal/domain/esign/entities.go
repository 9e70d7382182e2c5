package esign

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/domain/document"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusOTPSent Status = "otp_sent"
	StatusSigned  Status = "signed"
	StatusExpired Status = "expired"
	StatusFailed  Status = "failed"
)

const (
	ActionCreated      = "created"
	ActionNotified     = "notified"
	ActionNotifyFailed = "notify_failed"
	ActionViewed       = "viewed"
	ActionOTPSent      = "otp_sent"
	ActionOTPRejected  = "otp_rejected"
	ActionSigned       = "signed"
	ActionExpired      = "expired"
	ActionFailed       = "failed"
)

var (
	ErrNotFound         = apperr.NotFound("esign_not_found", "signing request not found")
	ErrExpired          = apperr.Expired("token_expired", "signing link has expired, request a new one")
	ErrAlreadySigned    = apperr.Conflict("already_signed", "document already signed")
	ErrActiveRequest    = apperr.Conflict("esign_active", "an active signing request already exists for this document")
	ErrFailed           = apperr.State("esign_failed", "signing request has failed, request a new one")
	ErrConsentRequired  = apperr.Validation("consent_required", "explicit consent is required to sign")
	ErrInvalidAadhaar   = apperr.Validation("aadhaar_invalid", "aadhaar number must be 12 digits")
	ErrOTPNotSent       = apperr.State("otp_not_sent", "start signing before submitting an OTP")
	ErrInvalidOTP       = apperr.Validation("otp_invalid", "OTP did not match")
	ErrAttemptsExceeded = apperr.State("otp_attempts_exhausted", "too many OTP attempts, request a new signing link")
	ErrDocumentMissing  = apperr.State("document_missing", "generate the document before requesting a signature")
	ErrSignerRequired   = apperr.Validation("signer_required", "signer name is required")
)

// Request is one signing session for one document of one application. The
// access token is the only credential the signer holds.
type Request struct {
	ID             uint64        `gorm:"primaryKey;column:id" json:"-"`
	OrgID          string        `gorm:"size:64;not null" json:"-"`
	ApplicationID  uint64        `gorm:"not null;index:idx_esign_app_doc" json:"-"`
	DocumentID     uint64        `gorm:"not null" json:"-"`
	DocumentType   document.Type `gorm:"size:32;not null;index:idx_esign_app_doc" json:"document_type"`
	SignerName     string        `gorm:"size:200;not null" json:"signer_name"`
	SignerPhone    string        `gorm:"size:20" json:"signer_phone,omitempty"`
	SignerEmail    string        `gorm:"size:255" json:"signer_email,omitempty"`
	AccessToken    string        `gorm:"size:64;not null;uniqueIndex:ux_esign_token" json:"-"`
	TokenExpiresAt time.Time     `gorm:"not null;index" json:"token_expires_at"`
	Status         Status        `gorm:"size:16;not null;index" json:"status"`
	ProviderRef    string        `gorm:"size:128" json:"-"`
	OTPAttempts    int           `gorm:"not null;default:0" json:"otp_attempts"`
	SignedAt       *time.Time    `json:"signed_at,omitempty"`
	SignerIP       string        `gorm:"size:64" json:"signer_ip,omitempty"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Request) TableName() string { return "esign_requests" }

func (r *Request) ExpiredAt(now time.Time) bool { return !now.Before(r.TokenExpiresAt) }

// Open reports whether the request can still progress towards a signature.
func (r *Request) Open() bool { return r.Status == StatusCreated || r.Status == StatusOTPSent }

// AuditEvent rows are inserted, never updated.
type AuditEvent struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	OrgID     string    `gorm:"size:64;not null" json:"-"`
	RequestID uint64    `gorm:"not null;index" json:"-"`
	Action    string    `gorm:"size:32;not null" json:"action"`
	Actor     string    `gorm:"size:128;not null" json:"actor"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

func (AuditEvent) TableName() string { return "esign_audit_events" }

type Repository interface {
	Create(ctx context.Context, r *Request) error
	Save(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uint64) (*Request, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*Request, error)
	GetLatest(ctx context.Context, applicationID uint64, docType document.Type) (*Request, error)
	ListOpenExpired(ctx context.Context, now time.Time, limit int) ([]Request, error)
	AppendAudit(ctx context.Context, e *AuditEvent) error
	ListAudit(ctx context.Context, requestID uint64) ([]AuditEvent, error)
}

type OTPSession struct {
	AadhaarNumber string
	DocumentKey   string
	SignerName    string
}

// Provider is the Aadhaar eSign partner. VerifyOTP returns false, nil for a
// wrong OTP and an error only when the provider cannot be reached.
type Provider interface {
	SendOTP(ctx context.Context, in OTPSession) (providerRef string, err error)
	VerifyOTP(ctx context.Context, providerRef, otp string) (bool, error)
}
