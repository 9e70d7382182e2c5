package verification

import (
	"time"

	"gorm.io/datatypes"
)

type Type string

const (
	TypePAN         Type = "pan"
	TypeAadhaar     Type = "aadhaar"
	TypeBankAccount Type = "bank_account"
	TypeVideoKYC    Type = "video_kyc"
	TypeFraudCheck  Type = "fraud_check"
)

func (t Type) Valid() bool {
	switch t {
	case TypePAN, TypeAadhaar, TypeBankAccount, TypeVideoKYC, TypeFraudCheck:
		return true
	}
	return false
}

// Required lists the checks that gate the move out of the verification stage.
var Required = []Type{TypePAN, TypeAadhaar, TypeBankAccount}

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

const (
	ErrorKindVerificationFailed  = "verification_failed"
	ErrorKindProviderUnavailable = "provider_unavailable"
)

// Record is unique per (application, type); retries update it in place and a
// success is never overwritten.
type Record struct {
	ID            uint64         `gorm:"primaryKey;column:id" json:"-"`
	OrgID         string         `gorm:"size:64;not null" json:"-"`
	ApplicationID uint64         `gorm:"not null;uniqueIndex:ux_verifications_app_type" json:"-"`
	Type          Type           `gorm:"size:24;not null;uniqueIndex:ux_verifications_app_type" json:"type"`
	Status        Status         `gorm:"size:16;not null" json:"status"`
	ProviderRef   string         `gorm:"size:128" json:"provider_ref,omitempty"`
	ProviderData  datatypes.JSON `json:"provider_data,omitempty"`
	ErrorKind     string         `gorm:"size:32" json:"error_kind,omitempty"`
	ErrorMessage  string         `gorm:"type:text" json:"error_message,omitempty"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	VerifiedAt    *time.Time     `json:"verified_at,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Record) TableName() string { return "verification_records" }
