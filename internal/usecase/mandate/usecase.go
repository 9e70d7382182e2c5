package mandate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/collection"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	domain "github.com/EcrTech/FL-sub005/internal/domain/mandate"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/domain/verification"
	"github.com/EcrTech/FL-sub005/pkg/id"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var frequencies = map[string]bool{
	"monthly":   true,
	"weekly":    true,
	"quarterly": true,
	"adhoc":     true,
}

type Usecase struct {
	uow      uow.UnitOfWork
	provider domain.Provider
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, provider domain.Provider, log logrus.FieldLogger) *Usecase {
	return &Usecase{
		uow:      tx,
		provider: provider,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a pending mandate under the application lock and then
// submits it to the sponsor bank. Only one open mandate may exist per
// application.
func (u *Usecase) Register(ctx context.Context, p access.Principal, number string, in RegisterInput) (*domain.Mandate, error) {
	if err := p.Require(access.PermPaymentsManage); err != nil {
		return nil, err
	}
	m, err := u.newMandate(in)
	if err != nil {
		return nil, err
	}

	var contact application.Applicant
	err = u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *application.Application) error {
		if a.Stage != application.StageSanctioned && a.Stage != application.StageDisbursed {
			return domain.ErrStage.WithMeta(map[string]any{"current_stage": string(a.Stage)})
		}
		open, err := r.Mandates.FindOpenByApplication(ctx, a.ID)
		if err == nil {
			return domain.ErrDuplicate.WithMeta(map[string]any{"mandate_ref": open.MandateRef, "status": string(open.Status)})
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		applicants, err := r.Applications.ListApplicants(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, ap := range applicants {
			if ap.IsPrimary {
				contact = ap
			}
		}
		m.OrgID = a.OrgID
		m.ApplicationID = a.ID
		return r.Mandates.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	res, callErr := u.provider.Register(ctx, domain.RegisterInput{
		MandateRef:    m.MandateRef,
		MaxAmount:     m.MaxAmount,
		Frequency:     m.Frequency,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		AccountHolder: m.AccountHolder,
		AccountNumber: m.AccountNumber,
		IFSC:          m.IFSC,
		Phone:         contact.Phone,
		Email:         contact.Email,
	})
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Mandates.GetByRefForUpdate(ctx, p.OrgID, m.MandateRef)
		if err != nil {
			return err
		}
		if callErr != nil {
			cur.Status = domain.StatusCancelled
			cur.RejectReason = "registration dispatch failed"
		} else {
			cur.ProviderRef = res.ProviderRef
			cur.Status = domain.StatusSubmitted
			advance(cur, res.Status, res.Reason)
		}
		m = cur
		return r.Mandates.Save(ctx, cur)
	})
	if callErr != nil {
		u.log.WithError(callErr).WithField("mandate_ref", m.MandateRef).Warn("mandate registration failed")
		return nil, callErr
	}
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"mandate_ref": m.MandateRef, "application_number": number, "status": m.Status}).Info("mandate submitted")
	return m, nil
}

func (u *Usecase) newMandate(in RegisterInput) (*domain.Mandate, error) {
	if !in.MaxAmount.IsPositive() {
		return nil, apperr.ErrInvalid.Msg("max amount must be positive").WithMeta(map[string]any{"field": "max_amount"})
	}
	freq := strings.ToLower(strings.TrimSpace(in.Frequency))
	if freq == "" {
		freq = "monthly"
	}
	if !frequencies[freq] {
		return nil, apperr.ErrInvalid.Msg("unsupported frequency %q", in.Frequency).WithMeta(map[string]any{"field": "frequency"})
	}
	if in.StartDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return nil, apperr.ErrInvalid.Msg("end date must be after start date").WithMeta(map[string]any{"field": "end_date"})
	}
	holder := strings.TrimSpace(in.AccountHolder)
	acct := strings.TrimSpace(in.AccountNumber)
	if holder == "" || acct == "" {
		return nil, apperr.ErrInvalid.Msg("account holder and account number are required").WithMeta(map[string]any{"field": "account_number"})
	}
	ifsc, err := verification.NormalizeIFSC(in.IFSC)
	if err != nil {
		return nil, err
	}
	return &domain.Mandate{
		MandateRef:    id.NewClientRef("MDT", domain.MaxRefLen),
		Status:        domain.StatusPending,
		MaxAmount:     in.MaxAmount.Round(2),
		Frequency:     freq,
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		AccountHolder: holder,
		AccountNumber: acct,
		IFSC:          ifsc,
	}, nil
}

// Refresh polls the sponsor bank for an open mandate.
func (u *Usecase) Refresh(ctx context.Context, p access.Principal, ref string) (*domain.Mandate, error) {
	if err := p.Require(access.PermPaymentsManage); err != nil {
		return nil, err
	}
	m, err := u.load(ctx, p.OrgID, ref)
	if err != nil {
		return nil, err
	}
	if !m.Status.Open() || m.ProviderRef == "" {
		return m, nil
	}
	res, err := u.provider.Status(ctx, m.ProviderRef)
	if err != nil {
		return nil, err
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Mandates.GetByRefForUpdate(ctx, p.OrgID, ref)
		if err != nil {
			return err
		}
		if advance(cur, res.Status, res.Reason) {
			if err := r.Mandates.Save(ctx, cur); err != nil {
				return err
			}
		}
		m = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Cancel revokes an open mandate at the bank, then locally.
func (u *Usecase) Cancel(ctx context.Context, p access.Principal, ref, reason string) (*domain.Mandate, error) {
	if err := p.Require(access.PermPaymentsManage); err != nil {
		return nil, err
	}
	m, err := u.load(ctx, p.OrgID, ref)
	if err != nil {
		return nil, err
	}
	if !m.Status.Open() {
		return nil, domain.ErrNotOpen.WithMeta(map[string]any{"status": string(m.Status)})
	}
	if m.ProviderRef != "" {
		if err := u.provider.Cancel(ctx, m.ProviderRef); err != nil {
			return nil, err
		}
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Mandates.GetByRefForUpdate(ctx, p.OrgID, ref)
		if err != nil {
			return err
		}
		if !cur.Status.Open() {
			return domain.ErrNotOpen.WithMeta(map[string]any{"status": string(cur.Status)})
		}
		cur.Status = domain.StatusCancelled
		cur.RejectReason = strings.TrimSpace(reason)
		m = cur
		return r.Mandates.Save(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"mandate_ref": ref, "actor": p.UserID}).Info("mandate cancelled")
	return m, nil
}

// ApplyEvent applies a signed status callback. It reports whether the
// mandate changed.
func (u *Usecase) ApplyEvent(ctx context.Context, ev Event) (*domain.Mandate, bool, error) {
	key := strings.TrimSpace(ev.ProviderRef)
	if key == "" {
		key = strings.TrimSpace(ev.MandateRef)
	}
	if key == "" {
		return nil, false, domain.ErrNotFound
	}
	var (
		out     *domain.Mandate
		changed bool
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		m, err := r.Mandates.GetByProviderRefForUpdate(ctx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		out = m
		if changed = advance(m, domain.NormalizeStatus(ev.Status), ev.Reason); changed {
			return r.Mandates.Save(ctx, m)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

// Debit presents an installment against the application's active mandate.
// No transaction is recorded unless the bank accepts the presentation.
func (u *Usecase) Debit(ctx context.Context, p access.Principal, number string, in DebitInput) (*collection.Transaction, error) {
	if err := p.Require(access.PermPaymentsManage); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, collection.ErrAmount
	}
	amount := in.Amount.Round(2)

	var (
		m   *domain.Mandate
		due = u.now()
	)
	if in.DueDate != nil {
		due = *in.DueDate
	}
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *application.Application) error {
		var err error
		m, err = r.Mandates.GetActiveByApplication(ctx, a.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotActive
		}
		if err != nil {
			return err
		}
		if amount.GreaterThan(m.MaxAmount) {
			return domain.ErrLimitExceeded.WithMeta(map[string]any{"max_amount": m.MaxAmount.StringFixed(2), "mandate_ref": m.MandateRef})
		}
		if in.ScheduleEntryID != nil {
			e, err := r.Schedule.GetForUpdate(ctx, *in.ScheduleEntryID)
			if err != nil || e.ApplicationID != a.ID {
				return ledger.ErrEntryNotFound
			}
			if in.DueDate == nil {
				due = e.DueDate
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	clientRef := id.NewClientRef("NACH", collection.MaxClientRefLen)
	res, err := u.provider.Debit(ctx, domain.DebitInput{
		MandateProviderRef: m.ProviderRef,
		ClientRef:          clientRef,
		Amount:             amount,
		DueDate:            due,
	})
	if err != nil {
		u.log.WithError(err).WithField("mandate_ref", m.MandateRef).Warn("nach debit presentation failed")
		return nil, err
	}

	mandateID := m.ID
	t := &collection.Transaction{
		OrgID:           m.OrgID,
		ApplicationID:   m.ApplicationID,
		ScheduleEntryID: in.ScheduleEntryID,
		MandateID:       &mandateID,
		Channel:         collection.ChannelNACH,
		ClientRef:       clientRef,
		ProviderRef:     res.ProviderRef,
		Amount:          amount,
		Status:          collection.StatusScheduled,
	}
	if st := collection.NormalizeStatus(res.Status); st.Terminal() && st != collection.StatusSuccess {
		// rejected at presentation; success only ever arrives by callback
		now := u.now()
		t.Status = st
		t.CompletedAt = &now
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Collections.Create(ctx, t); err != nil {
			return err
		}
		if in.ScheduleEntryID == nil {
			return nil
		}
		e, err := r.Schedule.GetForUpdate(ctx, *in.ScheduleEntryID)
		if err != nil {
			return err
		}
		e.DebitReference = firstNonEmpty(res.ProviderRef, clientRef)
		return r.Schedule.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"mandate_ref": m.MandateRef, "client_ref": clientRef, "amount": amount.StringFixed(2)}).Info("nach debit scheduled")
	return t, nil
}

func (u *Usecase) load(ctx context.Context, orgID, ref string) (*domain.Mandate, error) {
	var m *domain.Mandate
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		m, err = r.Mandates.GetByRefForUpdate(ctx, orgID, ref)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return m, err
}

var rank = map[domain.Status]int{
	domain.StatusPending:   0,
	domain.StatusSubmitted: 1,
	domain.StatusActive:    2,
}

// advance moves m to next when that is forward progress. Closed mandates
// never reopen and an active one never falls back to pending.
func advance(m *domain.Mandate, next domain.Status, reason string) bool {
	if !m.Status.Open() || next == "" || next == m.Status {
		return false
	}
	if next.Open() && rank[next] < rank[m.Status] {
		return false
	}
	m.Status = next
	if !next.Open() {
		m.RejectReason = strings.TrimSpace(reason)
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
