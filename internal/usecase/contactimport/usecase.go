package contactimport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	domain "github.com/EcrTech/FL-sub005/internal/domain/contact"
	jobdomain "github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/usecase/job"
	"github.com/EcrTech/FL-sub005/pkg/csvimport"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// cancelCheckEvery is how often, in rows, the worker re-reads the batch
// status and flushes progress.
const cancelCheckEvery = 50

const sourceImport = "csv_import"

// LeadCreator opens a lead application for an imported contact.
type LeadCreator interface {
	CreateLead(ctx context.Context, p access.Principal, c domain.Contact, amount decimal.Decimal) (*application.Application, error)
}

type ImportInput struct {
	FileName           string
	Content            []byte
	CreateApplications bool
}

// ImportPayload is the contacts.import job body.
type ImportPayload struct {
	BatchID string `json:"batch_id"`
}

type ImportSummary struct {
	Status              domain.BatchStatus `json:"status"`
	CreatedCount        int                `json:"created_count"`
	ApplicationsCreated int                `json:"applications_created"`
	FailedCount         int                `json:"failed_count"`
}

type RevertResult struct {
	BatchID string `json:"batch_id"`
	Deleted int64  `json:"deleted"`
}

type Usecase struct {
	uow   uow.UnitOfWork
	jobs  job.Enqueuer
	leads LeadCreator
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, jobs job.Enqueuer, leads LeadCreator, log logrus.FieldLogger) *Usecase {
	return &Usecase{
		uow:   tx,
		jobs:  jobs,
		leads: leads,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Import validates the header, records a queued batch and hands the rows to
// the worker.
func (u *Usecase) Import(ctx context.Context, p access.Principal, in ImportInput) (*domain.ImportBatch, error) {
	if err := p.Require(access.PermContactsImport); err != nil {
		return nil, err
	}
	if in.CreateApplications {
		if err := p.Require(access.PermApplicationsCreate); err != nil {
			return nil, err
		}
	}
	if len(bytes.TrimSpace(in.Content)) == 0 {
		return nil, domain.ErrEmptyUpload
	}
	parsed, err := csvimport.Parse(bytes.NewReader(in.Content))
	if err != nil {
		return nil, apperr.ErrInvalid.Msg("%s", err.Error()).WithMeta(map[string]any{"field": "file"})
	}

	b := &domain.ImportBatch{
		BatchID:            uuid.NewString(),
		OrgID:              p.OrgID,
		FileName:           strings.TrimSpace(in.FileName),
		Status:             domain.BatchQueued,
		CreateApplications: in.CreateApplications,
		RawCSV:             string(in.Content),
		TotalRows:          parsed.Total(),
		CreatedBy:          p.UserID,
	}
	repos := u.uow.Repos()
	if err := repos.Batches.Create(ctx, b); err != nil {
		return nil, err
	}
	j, err := u.jobs.Enqueue(ctx, p.OrgID, jobdomain.KindContactsImport, ImportPayload{BatchID: b.BatchID})
	if err != nil {
		if _, serr := repos.Batches.SetStatus(ctx, b.ID, domain.BatchFailed, domain.BatchQueued); serr != nil {
			u.log.WithError(serr).WithField("batch_id", b.BatchID).Error("could not mark import failed")
		}
		return nil, err
	}
	b.JobID = j.JobID
	if err := repos.Batches.Save(ctx, b); err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"batch_id": b.BatchID, "rows": b.TotalRows, "create_applications": b.CreateApplications}).Info("contact import queued")
	return b, nil
}

// HandleJob is the contacts.import worker handler.
func (u *Usecase) HandleJob(ctx context.Context, j *jobdomain.Job) (any, error) {
	var in ImportPayload
	if err := job.DecodePayload(j, &in); err != nil {
		return nil, err
	}
	repos := u.uow.Repos()
	b, err := repos.Batches.GetByBatchID(ctx, j.OrgID, in.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, err
	}
	started, err := repos.Batches.SetStatus(ctx, b.ID, domain.BatchRunning, domain.BatchQueued)
	if err != nil {
		return nil, err
	}
	if !started {
		st, err := repos.Batches.Status(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		return ImportSummary{Status: st}, nil
	}

	log := u.log.WithFields(logrus.Fields{"batch_id": b.BatchID, "job_id": j.JobID})
	parsed, err := csvimport.Parse(strings.NewReader(b.RawCSV))
	if err != nil {
		_, _ = repos.Batches.SetStatus(ctx, b.ID, domain.BatchFailed, domain.BatchRunning)
		return nil, err
	}

	// the worker acts for the uploader, whose permissions were checked at upload
	actor := access.System(b.OrgID)
	if b.CreatedBy != "" {
		actor.UserID = b.CreatedBy
	}
	rowErrs := append([]csvimport.RowError(nil), parsed.Errors...)
	b.TotalRows = parsed.Total()
	b.FailedCount = len(parsed.Errors)
	b.ProcessedRows = len(parsed.Errors)
	batchID := b.ID

	for i, row := range parsed.Rows {
		if i > 0 && i%cancelCheckEvery == 0 {
			if err := u.flush(ctx, repos, b, rowErrs); err != nil {
				return nil, u.abort(ctx, repos, b, log, err)
			}
			st, err := repos.Batches.Status(ctx, b.ID)
			if err != nil {
				return nil, u.abort(ctx, repos, b, log, err)
			}
			if st == domain.BatchCancelled {
				log.WithField("processed_rows", b.ProcessedRows).Info("contact import cancelled")
				return u.summary(b, st), nil
			}
		}
		b.ProcessedRows++

		c := domain.Contact{
			OrgID:     b.OrgID,
			BatchID:   &batchID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Phone:     row.Phone,
			Email:     row.Email,
			Company:   row.Company,
			Source:    sourceImport,
			CreatedBy: b.CreatedBy,
		}
		if err := repos.Contacts.Create(ctx, &c); err != nil {
			log.WithError(err).WithField("row", row.Line).Warn("contact insert failed")
			b.FailedCount++
			rowErrs = append(rowErrs, csvimport.RowError{Row: row.Line, Message: "could not save contact"})
			continue
		}
		b.CreatedCount++

		if !b.CreateApplications || strings.TrimSpace(row.LoanAmount) == "" {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row.LoanAmount), ",", ""))
		if err != nil || !amount.IsPositive() {
			rowErrs = append(rowErrs, csvimport.RowError{Row: row.Line, Message: "contact created, application skipped: invalid loan amount"})
			continue
		}
		if _, err := u.leads.CreateLead(ctx, actor, c, amount); err != nil {
			rowErrs = append(rowErrs, csvimport.RowError{Row: row.Line, Message: "contact created, application failed: " + errMessage(err)})
			continue
		}
		b.ApplicationsCreated++
	}

	if err := u.flush(ctx, repos, b, rowErrs); err != nil {
		return nil, u.abort(ctx, repos, b, log, err)
	}
	done, err := repos.Batches.SetStatus(ctx, b.ID, domain.BatchCompleted, domain.BatchRunning)
	if err != nil {
		return nil, u.abort(ctx, repos, b, log, err)
	}
	st := domain.BatchCompleted
	if !done {
		st = domain.BatchCancelled
	}
	log.WithFields(logrus.Fields{"created": b.CreatedCount, "failed": b.FailedCount, "applications": b.ApplicationsCreated}).Info("contact import finished")
	return u.summary(b, st), nil
}

// abort marks a running batch failed after a storage error. A batch that was
// cancelled meanwhile keeps its status.
func (u *Usecase) abort(ctx context.Context, r uow.Repos, b *domain.ImportBatch, log logrus.FieldLogger, cause error) error {
	log = log.WithError(cause).WithField("processed_rows", b.ProcessedRows)
	if _, err := r.Batches.SetStatus(ctx, b.ID, domain.BatchFailed, domain.BatchRunning); err != nil {
		log.WithField("status_error", err.Error()).Error("contact import failed, batch status not updated")
		return cause
	}
	log.Error("contact import failed")
	return cause
}

func (u *Usecase) flush(ctx context.Context, r uow.Repos, b *domain.ImportBatch, errs []csvimport.RowError) error {
	if len(errs) > 0 {
		sort.SliceStable(errs, func(i, j int) bool { return errs[i].Row < errs[j].Row })
		raw, err := json.Marshal(errs)
		if err != nil {
			return err
		}
		b.Errors = raw
	}
	return r.Batches.SaveProgress(ctx, b)
}

func (u *Usecase) summary(b *domain.ImportBatch, st domain.BatchStatus) ImportSummary {
	return ImportSummary{
		Status:              st,
		CreatedCount:        b.CreatedCount,
		ApplicationsCreated: b.ApplicationsCreated,
		FailedCount:         b.FailedCount,
	}
}

func (u *Usecase) GetBatch(ctx context.Context, p access.Principal, batchID string) (*domain.ImportBatch, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	b, err := u.uow.Repos().Batches.GetByBatchID(ctx, p.OrgID, batchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBatchNotFound
	}
	return b, err
}

// Cancel stops a queued or running import. Contacts already created stay;
// Revert removes them.
func (u *Usecase) Cancel(ctx context.Context, p access.Principal, batchID string) (*domain.ImportBatch, error) {
	if err := p.Require(access.PermContactsImport); err != nil {
		return nil, err
	}
	b, err := u.GetBatch(ctx, p, batchID)
	if err != nil {
		return nil, err
	}
	repos := u.uow.Repos()
	ok, err := repos.Batches.SetStatus(ctx, b.ID, domain.BatchCancelled, domain.BatchQueued, domain.BatchRunning)
	if err != nil {
		return nil, err
	}
	if !ok {
		st, err := repos.Batches.Status(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		return nil, domain.ErrBatchFinished.WithMeta(map[string]any{"status": string(st)})
	}
	u.log.WithFields(logrus.Fields{"batch_id": batchID, "actor": p.UserID}).Info("contact import cancel requested")
	return u.GetBatch(ctx, p, batchID)
}

// Revert deletes every contact the batch created. Lead applications opened
// for those contacts are kept.
func (u *Usecase) Revert(ctx context.Context, p access.Principal, batchID string) (*RevertResult, error) {
	if err := p.Require(access.PermContactsDelete); err != nil {
		return nil, err
	}
	out := &RevertResult{BatchID: batchID}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		b, err := r.Batches.GetByBatchIDForUpdate(ctx, p.OrgID, batchID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrBatchNotFound
		}
		if err != nil {
			return err
		}
		switch b.Status {
		case domain.BatchCompleted, domain.BatchCancelled, domain.BatchFailed:
		default:
			return domain.ErrNotRevertible.WithMeta(map[string]any{"status": string(b.Status)})
		}
		contacts, err := r.Contacts.ListByBatch(ctx, b.ID)
		if err != nil {
			return err
		}
		ids := make([]uint64, 0, len(contacts))
		for _, c := range contacts {
			if c.OrgID != p.OrgID {
				return apperr.ErrOrgBoundary
			}
			ids = append(ids, c.ID)
		}
		if len(ids) > 0 {
			if out.Deleted, err = r.Contacts.DeleteByIDs(ctx, p.OrgID, ids); err != nil {
				return err
			}
		}
		b.Status = domain.BatchReverted
		return r.Batches.Save(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"batch_id": batchID, "deleted": out.Deleted, "actor": p.UserID}).Info("contact import reverted")
	return out, nil
}

// DeleteContacts removes contacts only when every id belongs to the caller's
// organisation. One foreign or unknown id fails the whole request.
func (u *Usecase) DeleteContacts(ctx context.Context, p access.Principal, ids []uint64) (int64, error) {
	if err := p.Require(access.PermContactsDelete); err != nil {
		return 0, err
	}
	uniq := dedupe(ids)
	if len(uniq) == 0 {
		return 0, domain.ErrNoIDs
	}
	var deleted int64
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		found, err := r.Contacts.ListByIDs(ctx, uniq)
		if err != nil {
			return err
		}
		owned := make(map[uint64]bool, len(found))
		for _, c := range found {
			if c.OrgID == p.OrgID {
				owned[c.ID] = true
			}
		}
		var rejected []uint64
		for _, id := range uniq {
			if !owned[id] {
				rejected = append(rejected, id)
			}
		}
		if len(rejected) > 0 {
			return apperr.ErrOrgBoundary.WithMeta(map[string]any{"ids": rejected})
		}
		deleted, err = r.Contacts.DeleteByIDs(ctx, p.OrgID, uniq)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func errMessage(err error) string {
	if ae, ok := apperr.As(err); ok {
		return ae.Message
	}
	return fmt.Sprint(err)
}
