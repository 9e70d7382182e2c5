package contactimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	domain "github.com/EcrTech/FL-sub005/internal/domain/contact"
	jobdomain "github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/testutil/jobmock"
	"github.com/EcrTech/FL-sub005/internal/testutil/testdb"
	"github.com/EcrTech/FL-sub005/internal/testutil/uowmock"
	appuc "github.com/EcrTech/FL-sub005/internal/usecase/application"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	agent = access.Principal{UserID: "agent-1", OrgID: "org-a", Role: access.RoleAgent}
	admin = access.Principal{UserID: "admin-1", OrgID: "org-a", Role: access.RoleAdmin}
)

type leadFunc func(ctx context.Context, p access.Principal, c domain.Contact, amount decimal.Decimal) (*application.Application, error)

func (f leadFunc) CreateLead(ctx context.Context, p access.Principal, c domain.Contact, amount decimal.Decimal) (*application.Application, error) {
	return f(ctx, p, c, amount)
}

type fixture struct {
	db   *gorm.DB
	uc   *Usecase
	jobs *jobmock.Recorder
}

func newFixture(t *testing.T, leads LeadCreator) *fixture {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	db := testdb.Open(t)
	tx := gormrepo.NewGormUoW(db)
	if leads == nil {
		leads = appuc.NewUsecase(tx, l)
	}
	f := &fixture{db: db, jobs: &jobmock.Recorder{}}
	f.uc = NewUsecase(tx, f.jobs, leads, l)
	return f
}

func (f *fixture) importCSV(t *testing.T, csv string, apps bool) (*domain.ImportBatch, *jobdomain.Job) {
	t.Helper()
	b, err := f.uc.Import(context.Background(), agent, ImportInput{FileName: "leads.csv", Content: []byte(csv), CreateApplications: apps})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return b, f.jobs.Last()
}

func (f *fixture) batch(t *testing.T, id string) domain.ImportBatch {
	t.Helper()
	var b domain.ImportBatch
	if err := f.db.Where("batch_id = ?", id).First(&b).Error; err != nil {
		t.Fatalf("load batch: %v", err)
	}
	return b
}

func (f *fixture) contacts(t *testing.T) int64 {
	t.Helper()
	var n int64
	f.db.Model(&domain.Contact{}).Count(&n)
	return n
}

const mixedCSV = `first_name,last_name,phone,email,loan_amount
Ravi,Kumar,9876500001,,50000
Meena,,9876500002,meena@example.com,abc
Bad,Row,12345,,
Sita,Devi,,sita@example.com,
`

func TestImport_QueuesBatch(t *testing.T) {
	f := newFixture(t, nil)
	b, j := f.importCSV(t, mixedCSV, true)
	if b.Status != domain.BatchQueued || b.TotalRows != 4 || b.JobID != j.JobID || b.CreatedBy != "agent-1" {
		t.Fatalf("batch = %+v", b)
	}
	if j.Kind != jobdomain.KindContactsImport || string(j.Payload) != `{"batch_id":"`+b.BatchID+`"}` {
		t.Fatalf("job = %+v", j)
	}
}

func TestImport_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.uc.Import(ctx, agent, ImportInput{Content: []byte("  \n")}); !errors.Is(err, domain.ErrEmptyUpload) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := f.uc.Import(ctx, agent, ImportInput{Content: []byte("first_name,company\nA,B\n")}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("no identifier column: %v", err)
	}
	manager := access.Principal{UserID: "m", OrgID: "org-a", Role: access.RoleCreditManager}
	if _, err := f.uc.Import(ctx, manager, ImportInput{Content: []byte(mixedCSV), CreateApplications: true}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("lead creation without create permission: %v", err)
	}
	if len(f.jobs.Jobs) != 0 {
		t.Fatalf("rejected uploads queued jobs")
	}
}

func TestHandleJob_PartialSuccess(t *testing.T) {
	f := newFixture(t, nil)
	b, j := f.importCSV(t, mixedCSV, true)

	out, err := f.uc.HandleJob(context.Background(), j)
	if err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	sum := out.(ImportSummary)
	if sum.Status != domain.BatchCompleted || sum.CreatedCount != 3 || sum.ApplicationsCreated != 1 || sum.FailedCount != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	got := f.batch(t, b.BatchID)
	if got.Status != domain.BatchCompleted || got.ProcessedRows != 4 {
		t.Fatalf("batch = %+v", got)
	}
	errs := string(got.Errors)
	if !strings.Contains(errs, `"row":3`) || !strings.Contains(errs, "application skipped") || !strings.Contains(errs, `"row":4`) {
		t.Fatalf("errors = %s", errs)
	}

	var apps []application.Application
	f.db.Find(&apps)
	if len(apps) != 1 || apps[0].Stage != application.StageLead || !apps[0].RequestedAmount.Equal(decimal.NewFromInt(50000)) || apps[0].ContactID == nil {
		t.Fatalf("lead applications = %+v", apps)
	}

	again, err := f.uc.HandleJob(context.Background(), j)
	if err != nil || again.(ImportSummary).Status != domain.BatchCompleted || f.contacts(t) != 3 {
		t.Fatalf("redelivered job re-ran the import: %+v, %v", again, err)
	}
}

func TestHandleJob_LeadFailureIsPartial(t *testing.T) {
	f := newFixture(t, leadFunc(func(context.Context, access.Principal, domain.Contact, decimal.Decimal) (*application.Application, error) {
		return nil, apperr.ErrInvalid.Msg("tenure must be between 1 and 360 months")
	}))
	b, j := f.importCSV(t, "phone,loan_amount\n9876500001,1000\n", true)
	if _, err := f.uc.HandleJob(context.Background(), j); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	got := f.batch(t, b.BatchID)
	if got.CreatedCount != 1 || got.ApplicationsCreated != 0 || !strings.Contains(string(got.Errors), "application failed: tenure") {
		t.Fatalf("batch = %+v errors=%s", got, got.Errors)
	}
}

func TestHandleJob_StopsWhenCancelled(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("phone,loan_amount\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&sb, "98765%05d,1000\n", i)
	}
	var f *fixture
	var batchID string
	f = newFixture(t, leadFunc(func(context.Context, access.Principal, domain.Contact, decimal.Decimal) (*application.Application, error) {
		f.db.Model(&domain.ImportBatch{}).Where("batch_id = ?", batchID).Update("status", domain.BatchCancelled)
		return &application.Application{}, nil
	}))
	b, j := f.importCSV(t, sb.String(), true)
	batchID = b.BatchID

	out, err := f.uc.HandleJob(context.Background(), j)
	if err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if sum := out.(ImportSummary); sum.Status != domain.BatchCancelled || sum.CreatedCount != cancelCheckEvery {
		t.Fatalf("summary = %+v", sum)
	}
	got := f.batch(t, b.BatchID)
	if got.Status != domain.BatchCancelled || got.CreatedCount != cancelCheckEvery || got.TotalRows != 120 {
		t.Fatalf("batch = %+v", got)
	}
}

type failingProgress struct {
	domain.BatchRepository
	err error
}

func (f failingProgress) SaveProgress(context.Context, *domain.ImportBatch) error { return f.err }

func TestHandleJob_StorageFailureFailsBatch(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	db := testdb.Open(t)
	repos := gormrepo.NewGormUoW(db).Repos()
	diskFull := errors.New("disk full")
	repos.Batches = failingProgress{BatchRepository: repos.Batches, err: diskFull}
	jobs := &jobmock.Recorder{}
	uc := NewUsecase(uowmock.New().WithRepos(repos, nil), jobs, leadFunc(func(context.Context, access.Principal, domain.Contact, decimal.Decimal) (*application.Application, error) {
		return &application.Application{}, nil
	}), l)

	var sb strings.Builder
	sb.WriteString("phone\n")
	for i := 0; i < cancelCheckEvery+10; i++ {
		fmt.Fprintf(&sb, "98765%05d\n", i)
	}
	b, err := uc.Import(context.Background(), agent, ImportInput{FileName: "leads.csv", Content: []byte(sb.String())})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if _, err := uc.HandleJob(context.Background(), jobs.Last()); !errors.Is(err, diskFull) {
		t.Fatalf("want storage error, got %v", err)
	}
	var got domain.ImportBatch
	if err := db.Where("batch_id = ?", b.BatchID).First(&got).Error; err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if got.Status != domain.BatchFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestCancelBeforeWorkerStarts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b, j := f.importCSV(t, mixedCSV, false)

	got, err := f.uc.Cancel(ctx, agent, b.BatchID)
	if err != nil || got.Status != domain.BatchCancelled {
		t.Fatalf("Cancel = %+v, %v", got, err)
	}
	out, err := f.uc.HandleJob(ctx, j)
	if err != nil || out.(ImportSummary).Status != domain.BatchCancelled || f.contacts(t) != 0 {
		t.Fatalf("worker ran a cancelled batch: %+v, %v", out, err)
	}
	if _, err := f.uc.Cancel(ctx, agent, b.BatchID); !errors.Is(err, domain.ErrBatchFinished) {
		t.Fatalf("second cancel: %v", err)
	}
	other := access.Principal{UserID: "x", OrgID: "org-b", Role: access.RoleAgent}
	if _, err := f.uc.Cancel(ctx, other, b.BatchID); !errors.Is(err, domain.ErrBatchNotFound) {
		t.Fatalf("cross-org cancel: %v", err)
	}
}

func TestRevert(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b, j := f.importCSV(t, mixedCSV, false)

	if _, err := f.uc.Revert(ctx, admin, b.BatchID); !errors.Is(err, domain.ErrNotRevertible) {
		t.Fatalf("revert queued batch: %v", err)
	}
	if _, err := f.uc.HandleJob(ctx, j); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	res, err := f.uc.Revert(ctx, admin, b.BatchID)
	if err != nil || res.Deleted != 3 || f.contacts(t) != 0 {
		t.Fatalf("Revert = %+v, %v", res, err)
	}
	if got := f.batch(t, b.BatchID); got.Status != domain.BatchReverted {
		t.Fatalf("status = %s", got.Status)
	}
	if _, err := f.uc.Revert(ctx, admin, b.BatchID); !errors.Is(err, domain.ErrNotRevertible) {
		t.Fatalf("second revert: %v", err)
	}
}

func TestDeleteContacts_FailsClosedAcrossOrgs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	mine := domain.Contact{OrgID: "org-a", Phone: "9876500001"}
	theirs := domain.Contact{OrgID: "org-b", Phone: "9876500002"}
	f.db.Create(&mine)
	f.db.Create(&theirs)

	_, err := f.uc.DeleteContacts(ctx, admin, []uint64{mine.ID, theirs.ID})
	if !errors.Is(err, apperr.ErrOrgBoundary) || apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("want org boundary error, got %v", err)
	}
	if f.contacts(t) != 2 {
		t.Fatalf("contacts deleted despite rejection")
	}
	if _, err := f.uc.DeleteContacts(ctx, admin, []uint64{mine.ID, 999}); !errors.Is(err, apperr.ErrOrgBoundary) {
		t.Fatalf("unknown id: %v", err)
	}
	if _, err := f.uc.DeleteContacts(ctx, agent, []uint64{mine.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("agent delete: %v", err)
	}
	if _, err := f.uc.DeleteContacts(ctx, admin, nil); !errors.Is(err, domain.ErrNoIDs) {
		t.Fatalf("no ids: %v", err)
	}

	n, err := f.uc.DeleteContacts(ctx, admin, []uint64{mine.ID, mine.ID})
	if err != nil || n != 1 || f.contacts(t) != 1 {
		t.Fatalf("DeleteContacts = %d, %v", n, err)
	}
}
