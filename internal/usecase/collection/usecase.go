package collection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	domain "github.com/EcrTech/FL-sub005/internal/domain/collection"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/usecase/reconcile"
	"github.com/EcrTech/FL-sub005/pkg/id"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultCollectionTTL = 30 * time.Minute

type Usecase struct {
	uow       uow.UnitOfWork
	upi       domain.UPIProvider
	cache     domain.StatusCache
	reconcile *reconcile.Service
	ttl       time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, upi domain.UPIProvider, cache domain.StatusCache, rec *reconcile.Service, ttl time.Duration, log logrus.FieldLogger) *Usecase {
	if ttl <= 0 {
		ttl = DefaultCollectionTTL
	}
	return &Usecase{
		uow:       tx,
		upi:       upi,
		cache:     cache,
		reconcile: rec,
		ttl:       ttl,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateUPI raises a collection request. Reusing a client reference for the
// same application returns the stored transaction instead of a new one.
func (u *Usecase) CreateUPI(ctx context.Context, p access.Principal, number string, in CreateUPIInput) (*CreateUPIResult, error) {
	if err := p.Require(access.PermPaymentsManage); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, domain.ErrAmount
	}
	ref := strings.TrimSpace(in.ClientRef)
	if ref == "" {
		ref = id.NewClientRef("UPI", domain.MaxClientRefLen)
	} else if !domain.ValidClientRef(ref) {
		return nil, domain.ErrClientRefInvalid
	}

	repos := u.uow.Repos()
	a, err := repos.Applications.GetByNumber(ctx, p.OrgID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, application.ErrNotFound
		}
		return nil, err
	}
	if res, err := u.existing(ctx, repos, a, ref); res != nil || err != nil {
		return res, err
	}

	expires := u.now().Add(u.ttl)
	txn := &domain.Transaction{
		OrgID:           a.OrgID,
		ApplicationID:   a.ID,
		ScheduleEntryID: in.ScheduleEntryID,
		Channel:         domain.ChannelUPI,
		ClientRef:       ref,
		Amount:          in.Amount.Round(2),
		Status:          domain.StatusPending,
		PayerVPA:        strings.TrimSpace(in.PayerVPA),
		ExpiresAt:       &expires,
	}
	err = u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *application.Application) error {
		if a.Stage != application.StageDisbursed {
			return domain.ErrStage.WithMeta(map[string]any{"current_stage": string(a.Stage)})
		}
		if in.ScheduleEntryID != nil {
			e, err := r.Schedule.GetForUpdate(ctx, *in.ScheduleEntryID)
			if err != nil || e.ApplicationID != a.ID {
				return ledger.ErrEntryNotFound
			}
		}
		return r.Collections.Create(ctx, txn)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race on the same reference
		return u.existing(ctx, repos, a, ref)
	}
	if err != nil {
		return nil, err
	}

	res, callErr := u.upi.CreateCollection(ctx, domain.CollectInput{
		ClientRef: ref,
		Amount:    txn.Amount,
		PayerVPA:  txn.PayerVPA,
		Note:      in.Note,
		ExpiresAt: expires,
	})
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Collections.GetByClientRefForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		if callErr != nil {
			now := u.now()
			cur.Status = domain.StatusFailed
			cur.CompletedAt = &now
		} else {
			cur.ProviderRef = res.ProviderRef
			cur.QRPayload = res.QRPayload
			if res.Status != "" && res.Status != domain.StatusPending {
				cur.Status = res.Status
			}
		}
		txn = cur
		return r.Collections.Save(ctx, cur)
	})
	if callErr != nil {
		u.log.WithError(callErr).WithField("client_ref", ref).Warn("upi collection request failed")
		return nil, callErr
	}
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"client_ref": ref, "application_number": number, "amount": txn.Amount.StringFixed(2)}).Info("upi collection created")
	return &CreateUPIResult{Transaction: *txn, Duplicate: res.Duplicate}, nil
}

func (u *Usecase) existing(ctx context.Context, r uow.Repos, a *application.Application, ref string) (*CreateUPIResult, error) {
	prev, err := r.Collections.GetByClientRef(ctx, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prev.OrgID != a.OrgID || prev.ApplicationID != a.ID {
		return nil, domain.ErrClientRefReused
	}
	return &CreateUPIResult{Transaction: *prev, Duplicate: true}, nil
}

// Status answers from the terminal-status cache, then the database. Only a
// transaction that is still open is polled at the partner.
func (u *Usecase) Status(ctx context.Context, p access.Principal, clientRef string) (*domain.Transaction, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	if t, ok := u.cache.Get(clientRef); ok {
		if t.OrgID != p.OrgID {
			return nil, domain.ErrNotFound
		}
		return &t, nil
	}
	t, err := u.uow.Repos().Collections.GetByClientRef(ctx, clientRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if t.OrgID != p.OrgID {
		return nil, domain.ErrNotFound
	}
	if t.Status.Terminal() {
		u.cache.Put(*t)
		return t, nil
	}
	if t.Channel != domain.ChannelUPI {
		return t, nil
	}

	st, err := u.upi.Status(ctx, clientRef)
	if err != nil {
		return nil, err
	}
	res, err := u.settle(ctx, func(r uow.Repos) (*domain.Transaction, error) {
		return r.Collections.GetByClientRefForUpdate(ctx, clientRef)
	}, update{
		Status:      st.Status,
		ProviderRef: st.ProviderRef,
		UTR:         st.UTR,
		Confirmed:   st.ConfirmedAmount,
	})
	if err != nil {
		return nil, err
	}
	return &res.Transaction, nil
}

// ApplyEvent applies a signed partner callback. A transaction already in a
// terminal status is left untouched, so redelivery is harmless.
func (u *Usecase) ApplyEvent(ctx context.Context, ev Event) (*EventResult, error) {
	key := strings.TrimSpace(ev.ProviderRef)
	if key == "" {
		key = strings.TrimSpace(ev.ClientRef)
	}
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return u.settle(ctx, func(r uow.Repos) (*domain.Transaction, error) {
		return r.Collections.GetByProviderRefForUpdate(ctx, key)
	}, update{
		Status:      domain.NormalizeStatus(ev.Status),
		ProviderRef: ev.ProviderRef,
		UTR:         ev.UTR,
		Confirmed:   ev.ConfirmedAmount,
		Raw:         ev.Raw,
	})
}

type update struct {
	Status      domain.Status
	ProviderRef string
	UTR         string
	Confirmed   decimal.NullDecimal
	Raw         []byte
}

func (u *Usecase) settle(ctx context.Context, find func(uow.Repos) (*domain.Transaction, error), upd update) (*EventResult, error) {
	out := &EventResult{}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		t, err := find(r)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if t.Status.Terminal() {
			if upd.Status != t.Status {
				u.log.WithFields(logrus.Fields{"client_ref": t.ClientRef, "status": t.Status, "reported": upd.Status}).Warn("ignoring status change on terminal transaction")
			}
			out.Transaction = *t
			return nil
		}
		if t.ProviderRef == "" && upd.ProviderRef != "" {
			t.ProviderRef = upd.ProviderRef
		}
		if len(upd.Raw) > 0 {
			t.ProviderPayload = upd.Raw
		}
		if !upd.Status.Terminal() {
			if upd.Status == domain.StatusScheduled {
				t.Status = upd.Status
			}
			out.Transaction = *t
			return r.Collections.Save(ctx, t)
		}

		now := u.now()
		t.Status = upd.Status
		t.UTR = upd.UTR
		t.ConfirmedAmount = upd.Confirmed
		t.CompletedAt = &now
		if err := r.Collections.Save(ctx, t); err != nil {
			return err
		}
		out.Applied = true
		out.Transaction = *t

		if t.Status != domain.StatusSuccess {
			return nil
		}
		if t.ScheduleEntryID == nil {
			u.log.WithField("client_ref", t.ClientRef).Info("successful payment not linked to an installment")
			return nil
		}
		eventKey := t.ProviderRef
		if eventKey == "" {
			eventKey = t.ClientRef
		}
		txID := t.ID
		outcome, err := u.reconcile.Apply(ctx, r, reconcile.Event{
			Source:          string(t.Channel),
			EventKey:        eventKey,
			OrgID:           t.OrgID,
			ApplicationID:   t.ApplicationID,
			ScheduleEntryID: *t.ScheduleEntryID,
			TransactionID:   &txID,
			Reference:       firstNonEmpty(t.UTR, t.ClientRef),
			ConfirmedAmount: t.ConfirmedAmount,
			Amount:          t.Amount,
		})
		if err != nil {
			return err
		}
		out.Reconciled = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Transaction.Status.Terminal() {
		u.cache.Put(out.Transaction)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
