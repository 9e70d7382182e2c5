package verification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	domain "github.com/EcrTech/FL-sub005/internal/domain/verification"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Usecase struct {
	uow      uow.UnitOfWork
	registry *domain.Registry
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, registry *domain.Registry, log logrus.FieldLogger) *Usecase {
	return &Usecase{uow: tx, registry: registry, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var verifiableStages = map[application.Stage]bool{
	application.StageDocuments:    true,
	application.StageVerification: true,
	application.StageAssessment:   true,
}

// Verify runs one check. The record is marked pending and the attempt
// counted in one transaction, the provider is called with no transaction
// open, and the outcome is written in a second transaction. A record that
// has succeeded is returned unchanged.
func (u *Usecase) Verify(ctx context.Context, p access.Principal, number string, t domain.Type, fields map[string]string) (*domain.Record, error) {
	if err := p.Require(access.PermVerificationsRun); err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, domain.ErrUnsupportedType.WithMeta(map[string]any{"type": string(t)})
	}
	adapter, err := u.registry.Get(t)
	if err != nil {
		return nil, err
	}

	var (
		rec  *domain.Record
		req  = domain.Request{ApplicationNumber: number}
		done bool
	)
	err = u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *application.Application) error {
		if !verifiableStages[a.Stage] {
			return domain.ErrStage.WithMeta(map[string]any{"current_stage": string(a.Stage)})
		}
		var err error
		rec, err = r.Verifications.GetForUpdate(ctx, a.ID, t)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = &domain.Record{OrgID: a.OrgID, ApplicationID: a.ID, Type: t, Status: domain.StatusPending}
			if err := r.Verifications.Create(ctx, rec); err != nil {
				return err
			}
		case err != nil:
			return err
		case rec.Status == domain.StatusSuccess:
			done = true
			return nil
		}

		applicants, err := r.Applications.ListApplicants(ctx, a.ID)
		if err != nil {
			return err
		}
		req.Fields = withApplicantDefaults(fields, applicants)
		req.ProviderRef = rec.ProviderRef

		rec.Attempts++
		rec.Status = domain.StatusPending
		rec.ErrorKind = ""
		rec.ErrorMessage = ""
		return r.Verifications.Save(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	if done {
		return rec, nil
	}

	log := u.log.WithFields(logrus.Fields{"application_number": number, "type": t, "attempt": rec.Attempts})
	res, callErr := adapter.Verify(ctx, req)
	if callErr != nil {
		log.WithError(callErr).Warn("verification call failed")
	}

	var out *domain.Record
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Verifications.GetForUpdate(ctx, rec.ApplicationID, t)
		if err != nil {
			return err
		}
		out = cur
		if cur.Status == domain.StatusSuccess {
			return nil
		}
		if callErr != nil {
			cur.Status = domain.StatusPending
			cur.ErrorMessage = callErr.Error()
			if errors.Is(callErr, domain.ErrProviderUnavailable) {
				cur.ErrorKind = domain.ErrorKindProviderUnavailable
			}
			return r.Verifications.Save(ctx, cur)
		}
		applyResult(cur, res, u.now())
		return r.Verifications.Save(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	log.WithField("status", out.Status).Info("verification recorded")
	return out, nil
}

func applyResult(rec *domain.Record, res domain.Result, now time.Time) {
	rec.Status = res.Status
	if res.ProviderRef != "" {
		rec.ProviderRef = res.ProviderRef
	}
	if len(res.Data) > 0 {
		if raw, err := json.Marshal(res.Data); err == nil {
			rec.ProviderData = raw
		}
	}
	switch res.Status {
	case domain.StatusSuccess:
		rec.VerifiedAt = &now
		rec.ErrorKind = ""
		rec.ErrorMessage = ""
	case domain.StatusFailed:
		rec.ErrorKind = res.ErrorKind
		if rec.ErrorKind == "" {
			rec.ErrorKind = domain.ErrorKindVerificationFailed
		}
		rec.ErrorMessage = res.Message
	}
}

// withApplicantDefaults fills identity inputs the caller left out from the
// primary applicant.
func withApplicantDefaults(in map[string]string, applicants []application.Applicant) map[string]string {
	out := make(map[string]string, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	var primary *application.Applicant
	for i := range applicants {
		if applicants[i].IsPrimary {
			primary = &applicants[i]
			break
		}
	}
	if primary == nil {
		return out
	}
	def := map[string]string{
		"name":           strings.TrimSpace(primary.FirstName + " " + primary.LastName),
		"pan":            primary.PAN,
		"aadhaar_number": primary.Aadhaar,
		"phone":          primary.Phone,
		"email":          primary.Email,
		"date_of_birth":  primary.DateOfBirth,
	}
	for k, v := range def {
		if strings.TrimSpace(out[k]) == "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func (u *Usecase) List(ctx context.Context, p access.Principal, number string) ([]domain.Record, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	r := u.uow.Repos()
	a, err := r.Applications.GetByNumber(ctx, p.OrgID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, application.ErrNotFound
		}
		return nil, err
	}
	return r.Verifications.ListByApplication(ctx, a.ID)
}
