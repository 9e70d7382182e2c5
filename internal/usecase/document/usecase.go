package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	domain "github.com/EcrTech/FL-sub005/internal/domain/document"
	jobdomain "github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/usecase/job"

	"github.com/sirupsen/logrus"
)

const contentType = "text/plain; charset=utf-8"

// GeneratePayload is the document.generate job body.
type GeneratePayload struct {
	ApplicationNumber string      `json:"application_number"`
	DocumentType      domain.Type `json:"document_type"`
}

type GenerateResult struct {
	DocumentType domain.Type `json:"document_type"`
	StorageKey   string      `json:"storage_key"`
	ContentHash  string      `json:"content_hash"`
}

type Usecase struct {
	uow   uow.UnitOfWork
	jobs  job.Enqueuer
	store domain.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, jobs job.Enqueuer, store domain.Store, log logrus.FieldLogger) *Usecase {
	return &Usecase{
		uow:   tx,
		jobs:  jobs,
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func generatable(s application.Stage) bool {
	return s == application.StageSanctioned || s == application.StageDisbursed || s == application.StageClosed
}

// RequestGeneration checks the application and queues rendering.
func (u *Usecase) RequestGeneration(ctx context.Context, p access.Principal, number string, t domain.Type) (*jobdomain.Job, error) {
	if err := p.Require(access.PermApplicationsManage); err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, domain.ErrInvalidType
	}
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(_ uow.Repos, a *application.Application) error {
		if !generatable(a.Stage) {
			return domain.ErrNotSanctioned.WithMeta(map[string]any{"current_stage": string(a.Stage)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.jobs.Enqueue(ctx, p.OrgID, jobdomain.KindDocumentGenerate, GeneratePayload{ApplicationNumber: number, DocumentType: t})
}

// HandleJob is the document.generate worker handler.
func (u *Usecase) HandleJob(ctx context.Context, j *jobdomain.Job) (any, error) {
	var in GeneratePayload
	if err := job.DecodePayload(j, &in); err != nil {
		return nil, err
	}
	d, err := u.Generate(ctx, j.OrgID, in.ApplicationNumber, in.DocumentType)
	if err != nil {
		return nil, err
	}
	return GenerateResult{DocumentType: d.DocumentType, StorageKey: d.StorageKey, ContentHash: d.ContentHash}, nil
}

// Generate renders the document from the current terms, stores the bytes and
// records a new document version.
func (u *Usecase) Generate(ctx context.Context, orgID, number string, t domain.Type) (*domain.GeneratedDocument, error) {
	var (
		app   application.Application
		terms domain.Terms
	)
	err := u.uow.WithinApplicationTx(ctx, orgID, number, func(r uow.Repos, a *application.Application) error {
		if !generatable(a.Stage) {
			return domain.ErrNotSanctioned.WithMeta(map[string]any{"current_stage": string(a.Stage)})
		}
		applicants, err := r.Applications.ListApplicants(ctx, a.ID)
		if err != nil {
			return err
		}
		app = *a
		terms = termsFor(a, applicants, u.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	body, err := domain.Render(t, terms)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("documents/%s/%s/%s-%s.txt", app.OrgID, app.ApplicationNumber, t, hash[:12])
	if err := u.store.Put(ctx, key, contentType, body); err != nil {
		return nil, fmt.Errorf("store %s: %w", t, err)
	}

	d := &domain.GeneratedDocument{
		OrgID:         app.OrgID,
		ApplicationID: app.ID,
		DocumentType:  t,
		StorageKey:    key,
		ContentHash:   hash,
	}
	if err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Documents.Create(ctx, d)
	}); err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"application_number": number, "document_type": t, "storage_key": key}).Info("document generated")
	return d, nil
}

func termsFor(a *application.Application, applicants []application.Applicant, now time.Time) domain.Terms {
	amount := a.ApprovedAmount
	if !amount.IsPositive() {
		amount = a.RequestedAmount
	}
	name := ""
	for _, ap := range applicants {
		if ap.IsPrimary {
			name = strings.TrimSpace(ap.FirstName + " " + ap.LastName)
		}
	}
	return domain.Terms{
		ApplicationNumber: a.ApplicationNumber,
		BorrowerName:      name,
		Amount:            amount,
		TenureMonths:      a.TenureMonths,
		AnnualRate:        a.InterestRate,
		EMI:               ledger.EMI(amount, a.InterestRate, a.TenureMonths),
		IssuedAt:          now,
	}
}
