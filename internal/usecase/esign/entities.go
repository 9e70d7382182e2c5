package esign

import (
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/document"
	domain "github.com/EcrTech/FL-sub005/internal/domain/esign"
)

type Config struct {
	TokenTTL       time.Duration
	MaxOTPAttempts int
	SigningBaseURL string
}

type CreateInput struct {
	DocumentType document.Type
	// Signer fields default to the primary applicant.
	SignerName  string
	SignerPhone string
	SignerEmail string
}

type CreateResult struct {
	Request    domain.Request `json:"request"`
	SigningURL string         `json:"signing_url"`
	// NotifyJobID is empty when the notification could not be queued.
	NotifyJobID string `json:"notify_job_id,omitempty"`
}

// View is what the signer sees when opening the link.
type View struct {
	Request           domain.Request      `json:"request"`
	ApplicationNumber string              `json:"application_number"`
	Document          string              `json:"document"`
	AuditLog          []domain.AuditEvent `json:"audit_log"`
}

type InitiateInput struct {
	Consent       bool
	AadhaarNumber string
	IP            string
}

type CompleteInput struct {
	OTP string
	IP  string
}

// NotifyPayload is the esign.notify job body.
type NotifyPayload struct {
	RequestID uint64 `json:"request_id"`
}

type NotifyResult struct {
	SMS   string `json:"sms"`
	Email string `json:"email"`
}
