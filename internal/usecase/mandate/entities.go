package mandate

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegisterInput struct {
	MaxAmount     decimal.Decimal
	Frequency     string
	StartDate     time.Time
	EndDate       time.Time
	AccountHolder string
	AccountNumber string
	IFSC          string
}

type DebitInput struct {
	Amount          decimal.Decimal
	ScheduleEntryID *uint64
	// DueDate defaults to the schedule entry's due date, then today.
	DueDate *time.Time
}

// Event is a mandate status callback from the sponsor bank.
type Event struct {
	ProviderRef string
	MandateRef  string
	Status      string
	Reason      string
}
