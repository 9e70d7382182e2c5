// Package reconcile applies confirmed payments to the repayment schedule.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Event is one confirmed payment. Source and EventKey identify it for
// exactly-once processing.
type Event struct {
	Source          string
	EventKey        string
	OrgID           string
	ApplicationID   uint64
	ScheduleEntryID uint64
	TransactionID   *uint64
	Reference       string
	// ConfirmedAmount wins over Amount when the partner reports one.
	ConfirmedAmount decimal.NullDecimal
	Amount          decimal.Decimal
}

type Outcome struct {
	Payment ledger.Payment       `json:"payment"`
	Entry   ledger.ScheduleEntry `json:"entry"`
}

type Service struct {
	uow uow.UnitOfWork
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(tx uow.UnitOfWork, log logrus.FieldLogger) *Service {
	return &Service{uow: tx, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// ApplySuccess runs Apply in its own transaction.
func (s *Service) ApplySuccess(ctx context.Context, ev Event) (*Outcome, error) {
	var out *Outcome
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = s.Apply(ctx, r, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Apply books the payment with repos bound to the caller's transaction.
// A replayed event returns ledger.ErrAlreadyProcessed and writes nothing.
func (s *Service) Apply(ctx context.Context, r uow.Repos, ev Event) (*Outcome, error) {
	if err := r.Events.Record(ctx, &ledger.ProcessedEvent{Source: ev.Source, EventKey: ev.EventKey, OrgID: ev.OrgID}); err != nil {
		return nil, err
	}

	entry, err := r.Schedule.GetForUpdate(ctx, ev.ScheduleEntryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, err
	}
	if entry.ApplicationID != ev.ApplicationID {
		return nil, ledger.ErrEntryNotFound
	}

	amount := ev.Amount
	if ev.ConfirmedAmount.Valid && ev.ConfirmedAmount.Decimal.IsPositive() {
		amount = ev.ConfirmedAmount.Decimal
	}
	amount = amount.Round(2)

	now := s.now()
	excess := ledger.Excess(*entry, amount)
	principal, interest := ledger.Split(amount, *entry)
	p := ledger.Payment{
		OrgID:            entry.OrgID,
		ApplicationID:    entry.ApplicationID,
		ScheduleEntryID:  entry.ID,
		TransactionID:    ev.TransactionID,
		Amount:           amount,
		PrincipalPortion: principal,
		InterestPortion:  interest,
		ExcessAmount:     excess,
		Reference:        ev.Reference,
		Source:           ev.Source,
	}
	if err := r.Payments.Create(ctx, &p); err != nil {
		return nil, err
	}

	entry.AmountPaid = entry.AmountPaid.Add(amount)
	entry.Status = ledger.DeriveStatus(entry.AmountPaid, entry.TotalEMI, entry.DueDate, now)
	if entry.Status == ledger.EntryPaid && entry.PaidAt == nil {
		entry.PaidAt = &now
	}
	if err := r.Schedule.Save(ctx, entry); err != nil {
		return nil, err
	}

	a, err := r.Applications.GetByIDForUpdate(ctx, entry.ApplicationID)
	if err != nil {
		return nil, err
	}
	a.OutstandingPrincipal = a.OutstandingPrincipal.Sub(principal)
	if a.OutstandingPrincipal.IsNegative() {
		a.OutstandingPrincipal = decimal.Zero
	}
	if err := r.Applications.Save(ctx, a); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"application_number": a.ApplicationNumber,
		"installment":        entry.InstallmentNo,
		"amount":             amount.StringFixed(2),
		"source":             ev.Source,
		"event_key":          ev.EventKey,
	})
	if excess.IsPositive() {
		log.WithField("excess", excess.StringFixed(2)).Warn("payment exceeds installment")
	}
	log.WithField("status", entry.Status).Info("payment reconciled")
	return &Outcome{Payment: p, Entry: *entry}, nil
}
