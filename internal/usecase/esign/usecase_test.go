package esign

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/document"
	domain "github.com/EcrTech/FL-sub005/internal/domain/esign"
	jobdomain "github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/storage"
	"github.com/EcrTech/FL-sub005/internal/testutil/jobmock"
	"github.com/EcrTech/FL-sub005/internal/testutil/providermock"
	"github.com/EcrTech/FL-sub005/internal/testutil/testdb"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var agent = access.Principal{UserID: "agent-1", OrgID: "org-a", Role: access.RoleAgent}

type sent struct {
	mu   sync.Mutex
	to   []string
	body []string
	err  error
}

func (s *sent) SendSMS(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return s.err
}

func (s *sent) SendEmail(_ context.Context, to, _, body string) error {
	return s.SendSMS(context.Background(), to, body)
}

type fixture struct {
	db    *gorm.DB
	uc    *Usecase
	esign *providermock.ESign
	jobs  *jobmock.Recorder
	sms   *sent
	email *sent
	app   *application.Application
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	db := testdb.Open(t)
	store := storage.NewDBStore(db)
	f := &fixture{
		db:    db,
		esign: &providermock.ESign{},
		jobs:  &jobmock.Recorder{},
		sms:   &sent{},
		email: &sent{},
		clock: time.Now().UTC().Truncate(time.Second),
	}
	f.app = testdb.SeedApplication(t, db, "org-a", application.StageSanctioned)
	if err := store.Put(context.Background(), "docs/agreement.txt", "text/plain", []byte("LOAN AGREEMENT body")); err != nil {
		t.Fatalf("store: %v", err)
	}
	doc := &document.GeneratedDocument{OrgID: "org-a", ApplicationID: f.app.ID, DocumentType: document.TypeLoanAgreement, StorageKey: "docs/agreement.txt", ContentHash: strings.Repeat("a", 64)}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("seed document: %v", err)
	}
	f.uc = NewUsecase(gormrepo.NewGormUoW(db), f.esign, f.jobs, store, f.sms, f.email, Config{
		TokenTTL:       time.Hour,
		MaxOTPAttempts: 3,
		SigningBaseURL: "https://sign.example.com/",
	}, l)
	f.uc.now = func() time.Time { return f.clock }
	f.esign.SendOTPFn = func(context.Context, domain.OTPSession) (string, error) { return "OTP-REF", nil }
	f.esign.VerifyOTPFn = func(_ context.Context, ref, otp string) (bool, error) {
		return ref == "OTP-REF" && otp == "123456", nil
	}
	return f
}

func (f *fixture) create(t *testing.T) *CreateResult {
	t.Helper()
	res, err := f.uc.Create(context.Background(), agent, f.app.ApplicationNumber, CreateInput{DocumentType: document.TypeLoanAgreement})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res
}

func (f *fixture) actions(t *testing.T, requestID uint64) []string {
	t.Helper()
	var rows []domain.AuditEvent
	if err := f.db.Where("request_id = ?", requestID).Order("id").Find(&rows).Error; err != nil {
		t.Fatalf("audit: %v", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Action
	}
	return out
}

func TestCreate_IssuesLinkAndQueuesNotification(t *testing.T) {
	f := newFixture(t)
	res := f.create(t)
	req := res.Request
	if req.Status != domain.StatusCreated || req.SignerName != "Asha Rao" || req.SignerPhone != "9876543210" || len(req.AccessToken) != 64 {
		t.Fatalf("request = %+v", req)
	}
	if res.SigningURL != "https://sign.example.com/sign/"+req.AccessToken {
		t.Fatalf("url = %s", res.SigningURL)
	}
	if j := f.jobs.Last(); j == nil || j.Kind != jobdomain.KindESignNotify || res.NotifyJobID != j.JobID {
		t.Fatalf("notify job = %+v", j)
	}
	if got := f.actions(t, req.ID); len(got) != 1 || got[0] != domain.ActionCreated {
		t.Fatalf("audit = %v", got)
	}

	if _, err := f.uc.Create(context.Background(), agent, f.app.ApplicationNumber, CreateInput{DocumentType: document.TypeLoanAgreement}); !errors.Is(err, domain.ErrActiveRequest) {
		t.Fatalf("want ErrActiveRequest, got %v", err)
	}
	if _, err := f.uc.Create(context.Background(), agent, f.app.ApplicationNumber, CreateInput{DocumentType: document.TypeSanctionLetter}); !errors.Is(err, domain.ErrDocumentMissing) {
		t.Fatalf("want ErrDocumentMissing, got %v", err)
	}
}

func TestCreate_QueueFailureStillIssuesLink(t *testing.T) {
	f := newFixture(t)
	f.jobs.Err = errors.New("redis down")
	res := f.create(t)
	if res.NotifyJobID != "" || res.SigningURL == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestView_ExpiredTokenIsMarkedAndReissued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t).Request

	v, err := f.uc.View(ctx, first.AccessToken)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Document != "LOAN AGREEMENT body" || v.ApplicationNumber != f.app.ApplicationNumber || len(v.AuditLog) != 2 {
		t.Fatalf("view = %+v", v)
	}

	f.clock = f.clock.Add(2 * time.Hour)
	if _, err := f.uc.View(ctx, first.AccessToken); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	var stored domain.Request
	f.db.First(&stored, first.ID)
	if stored.Status != domain.StatusExpired {
		t.Fatalf("expiry not persisted: %s", stored.Status)
	}
	if got := f.actions(t, first.ID); got[len(got)-1] != domain.ActionExpired {
		t.Fatalf("audit = %v", got)
	}

	second := f.create(t).Request
	if second.ID == first.ID || second.AccessToken == first.AccessToken {
		t.Fatalf("expired request not reissued")
	}
	if _, err := f.uc.View(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestSigning_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.create(t).Request.AccessToken

	if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "123456"}); !errors.Is(err, domain.ErrOTPNotSent) {
		t.Fatalf("complete before initiate: %v", err)
	}
	if _, err := f.uc.Initiate(ctx, token, InitiateInput{AadhaarNumber: "123412341234"}); !errors.Is(err, domain.ErrConsentRequired) {
		t.Fatalf("no consent: %v", err)
	}
	if _, err := f.uc.Initiate(ctx, token, InitiateInput{Consent: true, AadhaarNumber: "1234"}); !errors.Is(err, domain.ErrInvalidAadhaar) {
		t.Fatalf("short aadhaar: %v", err)
	}

	var session domain.OTPSession
	f.esign.SendOTPFn = func(_ context.Context, in domain.OTPSession) (string, error) {
		session = in
		return "OTP-REF", nil
	}
	req, err := f.uc.Initiate(ctx, token, InitiateInput{Consent: true, AadhaarNumber: "1234 1234 1234", IP: "10.0.0.1"})
	if err != nil || req.Status != domain.StatusOTPSent || req.ProviderRef != "OTP-REF" {
		t.Fatalf("initiate = %+v, %v", req, err)
	}
	if session.AadhaarNumber != "123412341234" || session.DocumentKey != "docs/agreement.txt" {
		t.Fatalf("session = %+v", session)
	}

	req, err = f.uc.Complete(ctx, token, CompleteInput{OTP: "123456", IP: "10.0.0.1"})
	if err != nil || req.Status != domain.StatusSigned || req.SignedAt == nil {
		t.Fatalf("complete = %+v, %v", req, err)
	}
	var doc document.GeneratedDocument
	f.db.First(&doc, req.DocumentID)
	if !doc.CustomerSigned || doc.SignedAt == nil {
		t.Fatalf("document not marked signed: %+v", doc)
	}

	if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "123456"}); !errors.Is(err, domain.ErrAlreadySigned) {
		t.Fatalf("second complete: %v", err)
	}
	if _, err := f.uc.Create(ctx, agent, f.app.ApplicationNumber, CreateInput{DocumentType: document.TypeLoanAgreement}); !errors.Is(err, domain.ErrAlreadySigned) {
		t.Fatalf("create after signing: %v", err)
	}
}

func TestComplete_AttemptsAreBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.create(t).Request.AccessToken
	if _, err := f.uc.Initiate(ctx, token, InitiateInput{Consent: true, AadhaarNumber: "123412341234"}); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "000000"}); !errors.Is(err, domain.ErrInvalidOTP) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "000000"}); !errors.Is(err, domain.ErrAttemptsExceeded) {
		t.Fatalf("last attempt: %v", err)
	}
	if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "123456"}); !errors.Is(err, domain.ErrFailed) {
		t.Fatalf("after exhaustion: %v", err)
	}
	var stored domain.Request
	f.db.Where("access_token = ?", token).First(&stored)
	if stored.Status != domain.StatusFailed || stored.OTPAttempts != 3 {
		t.Fatalf("request = %+v", stored)
	}
}

func TestComplete_ProviderErrorDoesNotCountAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.create(t).Request.AccessToken
	if _, err := f.uc.Initiate(ctx, token, InitiateInput{Consent: true, AadhaarNumber: "123412341234"}); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	boom := errors.New("partner timeout")
	f.esign.VerifyOTPFn = func(context.Context, string, string) (bool, error) { return false, boom }
	if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "123456"}); !errors.Is(err, boom) {
		t.Fatalf("want provider error, got %v", err)
	}
	var stored domain.Request
	f.db.Where("access_token = ?", token).First(&stored)
	if stored.OTPAttempts != 0 || stored.Status != domain.StatusOTPSent {
		t.Fatalf("request = %+v", stored)
	}
}

func TestHandleNotifyJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t).Request
	j := f.jobs.Last()

	f.sms.err = errors.New("twilio 400")
	out, err := f.uc.HandleNotifyJob(ctx, j)
	if err != nil {
		t.Fatalf("one channel up should succeed: %v", err)
	}
	if res := out.(NotifyResult); res.SMS != "failed" || res.Email != "sent" {
		t.Fatalf("result = %+v", res)
	}
	if len(f.email.to) != 1 || f.email.to[0] != "asha@example.com" || !strings.Contains(f.email.body[0], "/sign/"+req.AccessToken) {
		t.Fatalf("email = %+v", f.email.to)
	}
	got := f.actions(t, req.ID)
	if len(got) != 3 || got[1] != domain.ActionNotifyFailed || got[2] != domain.ActionNotified {
		t.Fatalf("audit = %v", got)
	}

	f.email.err = errors.New("smtp down")
	if _, err := f.uc.HandleNotifyJob(ctx, j); err == nil {
		t.Fatalf("all channels failed but job succeeded")
	}
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	req := f.create(t).Request
	f.clock = f.clock.Add(90 * time.Minute)
	n, err := f.uc.ExpireStale(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ExpireStale = %d, %v", n, err)
	}
	var stored domain.Request
	f.db.First(&stored, req.ID)
	if stored.Status != domain.StatusExpired {
		t.Fatalf("status = %s", stored.Status)
	}
	if n, _ := f.uc.ExpireStale(context.Background()); n != 0 {
		t.Fatalf("second sweep expired %d", n)
	}
}

func TestInitiate_TokenLapsesDuringProviderCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.create(t).Request.AccessToken

	f.esign.SendOTPFn = func(context.Context, domain.OTPSession) (string, error) {
		f.clock = f.clock.Add(2 * time.Hour)
		return "OTP-REF", nil
	}
	if _, err := f.uc.Initiate(ctx, token, InitiateInput{Consent: true, AadhaarNumber: "123412341234"}); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	var stored domain.Request
	f.db.Where("access_token = ?", token).First(&stored)
	if stored.Status != domain.StatusExpired || stored.ProviderRef != "" {
		t.Fatalf("request = %+v", stored)
	}
	if got := f.actions(t, stored.ID); got[len(got)-1] != domain.ActionExpired {
		t.Fatalf("audit = %v", got)
	}
}

func TestComplete_TokenLapsesDuringProviderCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.create(t).Request.AccessToken
	if _, err := f.uc.Initiate(ctx, token, InitiateInput{Consent: true, AadhaarNumber: "123412341234"}); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	f.esign.VerifyOTPFn = func(context.Context, string, string) (bool, error) {
		f.clock = f.clock.Add(2 * time.Hour)
		return true, nil
	}
	if _, err := f.uc.Complete(ctx, token, CompleteInput{OTP: "123456"}); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	var stored domain.Request
	f.db.Where("access_token = ?", token).First(&stored)
	if stored.Status != domain.StatusExpired || stored.SignedAt != nil {
		t.Fatalf("request = %+v", stored)
	}
	var doc document.GeneratedDocument
	f.db.First(&doc, stored.DocumentID)
	if doc.CustomerSigned {
		t.Fatalf("document signed on a lapsed token")
	}
}
