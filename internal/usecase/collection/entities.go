package collection

import (
	domain "github.com/EcrTech/FL-sub005/internal/domain/collection"
	"github.com/EcrTech/FL-sub005/internal/usecase/reconcile"

	"github.com/shopspring/decimal"
)

type CreateUPIInput struct {
	// ClientRef is optional; one is generated when empty.
	ClientRef       string
	Amount          decimal.Decimal
	PayerVPA        string
	ScheduleEntryID *uint64
	Note            string
}

type CreateUPIResult struct {
	Transaction domain.Transaction `json:"transaction"`
	// Duplicate reports that the client reference was already known.
	Duplicate bool `json:"duplicate"`
}

// Event is a partner status callback for a UPI or NACH transaction.
type Event struct {
	ProviderRef     string
	ClientRef       string
	Status          string
	UTR             string
	ConfirmedAmount decimal.NullDecimal
	Raw             []byte
}

type EventResult struct {
	Transaction domain.Transaction `json:"transaction"`
	// Applied is false when the transaction was already terminal.
	Applied    bool               `json:"applied"`
	Reconciled *reconcile.Outcome `json:"reconciled,omitempty"`
}
