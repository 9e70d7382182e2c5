package esign

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/document"
	domain "github.com/EcrTech/FL-sub005/internal/domain/esign"
	jobdomain "github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/usecase/job"
	"github.com/EcrTech/FL-sub005/pkg/id"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	actorSigner = "signer"
	actorSystem = "system"
	expireBatch = 100
)

var reAadhaar = regexp.MustCompile(`^[0-9]{12}$`)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender delivers an HTML body.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

type Usecase struct {
	uow      uow.UnitOfWork
	provider domain.Provider
	jobs     job.Enqueuer
	store    document.Store
	sms      SMSSender
	email    EmailSender
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, provider domain.Provider, jobs job.Enqueuer, store document.Store, sms SMSSender, email EmailSender, cfg Config, log logrus.FieldLogger) *Usecase {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.MaxOTPAttempts <= 0 {
		cfg.MaxOTPAttempts = 3
	}
	return &Usecase{
		uow:      tx,
		provider: provider,
		jobs:     jobs,
		store:    store,
		sms:      sms,
		email:    email,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) signingURL(token string) string {
	return strings.TrimRight(u.cfg.SigningBaseURL, "/") + "/sign/" + token
}

// Create issues a signing link for the latest generated document of the given
// type. An expired or failed earlier request is superseded.
func (u *Usecase) Create(ctx context.Context, p access.Principal, number string, in CreateInput) (*CreateResult, error) {
	if err := p.Require(access.PermApplicationsManage); err != nil {
		return nil, err
	}
	if !in.DocumentType.Valid() {
		return nil, document.ErrInvalidType
	}

	now := u.now()
	req := &domain.Request{
		DocumentType:   in.DocumentType,
		AccessToken:    id.NewToken(),
		TokenExpiresAt: now.Add(u.cfg.TokenTTL),
		Status:         domain.StatusCreated,
	}
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *application.Application) error {
		doc, err := r.Documents.GetLatest(ctx, a.ID, in.DocumentType)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrDocumentMissing
		}
		if err != nil {
			return err
		}
		if doc.CustomerSigned {
			return domain.ErrAlreadySigned
		}

		prev, err := r.ESign.GetLatest(ctx, a.ID, in.DocumentType)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		case prev.Status == domain.StatusSigned:
			return domain.ErrAlreadySigned
		case prev.Open() && !prev.ExpiredAt(now):
			return domain.ErrActiveRequest.WithMeta(map[string]any{"token_expires_at": prev.TokenExpiresAt})
		case prev.Open():
			if err := u.expire(ctx, r, prev, actorSystem); err != nil {
				return err
			}
		}

		applicants, err := r.Applications.ListApplicants(ctx, a.ID)
		if err != nil {
			return err
		}
		fillSigner(req, in, applicants)
		if req.SignerName == "" {
			return domain.ErrSignerRequired
		}
		req.OrgID = a.OrgID
		req.ApplicationID = a.ID
		req.DocumentID = doc.ID
		if err := r.ESign.Create(ctx, req); err != nil {
			return err
		}
		return r.ESign.AppendAudit(ctx, &domain.AuditEvent{
			OrgID:     a.OrgID,
			RequestID: req.ID,
			Action:    domain.ActionCreated,
			Actor:     p.UserID,
			Detail:    string(in.DocumentType),
		})
	})
	if err != nil {
		return nil, err
	}

	out := &CreateResult{Request: *req, SigningURL: u.signingURL(req.AccessToken)}
	j, err := u.jobs.Enqueue(ctx, req.OrgID, jobdomain.KindESignNotify, NotifyPayload{RequestID: req.ID})
	if err != nil {
		u.log.WithError(err).WithField("application_number", number).Warn("could not queue signer notification")
	} else {
		out.NotifyJobID = j.JobID
	}
	return out, nil
}

func fillSigner(req *domain.Request, in CreateInput, applicants []application.Applicant) {
	req.SignerName = strings.TrimSpace(in.SignerName)
	req.SignerPhone = strings.TrimSpace(in.SignerPhone)
	req.SignerEmail = strings.TrimSpace(in.SignerEmail)
	for _, ap := range applicants {
		if !ap.IsPrimary {
			continue
		}
		if req.SignerName == "" {
			req.SignerName = strings.TrimSpace(ap.FirstName + " " + ap.LastName)
		}
		if req.SignerPhone == "" {
			req.SignerPhone = ap.Phone
		}
		if req.SignerEmail == "" {
			req.SignerEmail = ap.Email
		}
	}
}

// View opens the signing page. Every read enforces the token expiry.
func (u *Usecase) View(ctx context.Context, token string) (*View, error) {
	var (
		out     View
		key     string
		expired bool
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.lock(ctx, r, token)
		if err != nil {
			return err
		}
		if expired, err = u.enforceExpiry(ctx, r, req); err != nil || expired {
			return err
		}
		switch req.Status {
		case domain.StatusExpired:
			expired = true
			return nil
		case domain.StatusFailed:
			return domain.ErrFailed
		}
		if req.Open() {
			if err := r.ESign.AppendAudit(ctx, &domain.AuditEvent{OrgID: req.OrgID, RequestID: req.ID, Action: domain.ActionViewed, Actor: actorSigner}); err != nil {
				return err
			}
		}
		doc, err := r.Documents.GetByID(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		a, err := r.Applications.GetByID(ctx, req.ApplicationID)
		if err != nil {
			return err
		}
		audit, err := r.ESign.ListAudit(ctx, req.ID)
		if err != nil {
			return err
		}
		key = doc.StorageKey
		out = View{Request: *req, ApplicationNumber: a.ApplicationNumber, AuditLog: audit}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrExpired
	}
	body, err := u.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	out.Document = string(body)
	return &out, nil
}

// Initiate records consent and asks the partner to send an Aadhaar OTP.
func (u *Usecase) Initiate(ctx context.Context, token string, in InitiateInput) (*domain.Request, error) {
	if !in.Consent {
		return nil, domain.ErrConsentRequired
	}
	aadhaar := strings.ReplaceAll(strings.TrimSpace(in.AadhaarNumber), " ", "")
	if !reAadhaar.MatchString(aadhaar) {
		return nil, domain.ErrInvalidAadhaar
	}

	var (
		session = domain.OTPSession{AadhaarNumber: aadhaar}
		expired bool
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.lock(ctx, r, token)
		if err != nil {
			return err
		}
		if expired, err = u.enforceExpiry(ctx, r, req); err != nil || expired {
			return err
		}
		if err := closedError(req); err != nil {
			return err
		}
		doc, err := r.Documents.GetByID(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		session.DocumentKey = doc.StorageKey
		session.SignerName = req.SignerName
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrExpired
	}

	ref, err := u.provider.SendOTP(ctx, session)
	if err != nil {
		return nil, err
	}

	var out *domain.Request
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.lock(ctx, r, token)
		if err != nil {
			return err
		}
		if expired, err = u.enforceExpiry(ctx, r, req); err != nil || expired {
			return err
		}
		if err := closedError(req); err != nil {
			return err
		}
		req.ProviderRef = ref
		req.Status = domain.StatusOTPSent
		req.SignerIP = in.IP
		if err := r.ESign.Save(ctx, req); err != nil {
			return err
		}
		out = req
		return r.ESign.AppendAudit(ctx, &domain.AuditEvent{
			OrgID:     req.OrgID,
			RequestID: req.ID,
			Action:    domain.ActionOTPSent,
			Actor:     actorSigner,
			Detail:    "aadhaar ending " + aadhaar[8:] + ipDetail(in.IP),
		})
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrExpired
	}
	return out, nil
}

// Complete verifies the OTP. Attempts are bounded per request; exhausting
// them fails the request.
func (u *Usecase) Complete(ctx context.Context, token string, in CompleteInput) (*domain.Request, error) {
	otp := strings.TrimSpace(in.OTP)
	if otp == "" {
		return nil, domain.ErrInvalidOTP
	}

	var (
		ref     string
		expired bool
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.lock(ctx, r, token)
		if err != nil {
			return err
		}
		if expired, err = u.enforceExpiry(ctx, r, req); err != nil || expired {
			return err
		}
		if err := otpState(req); err != nil {
			return err
		}
		ref = req.ProviderRef
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrExpired
	}

	ok, err := u.provider.VerifyOTP(ctx, ref, otp)
	if err != nil {
		return nil, err
	}

	var (
		out   *domain.Request
		after error
	)
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.lock(ctx, r, token)
		if err != nil {
			return err
		}
		if expired, err = u.enforceExpiry(ctx, r, req); err != nil || expired {
			return err
		}
		if err := otpState(req); err != nil {
			return err
		}
		out = req
		if !ok {
			after, err = u.rejectOTP(ctx, r, req)
			return err
		}

		now := u.now()
		req.Status = domain.StatusSigned
		req.SignedAt = &now
		if in.IP != "" {
			req.SignerIP = in.IP
		}
		if err := r.ESign.Save(ctx, req); err != nil {
			return err
		}
		doc, err := r.Documents.GetByID(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		doc.CustomerSigned = true
		doc.SignedAt = &now
		if err := r.Documents.Save(ctx, doc); err != nil {
			return err
		}
		return r.ESign.AppendAudit(ctx, &domain.AuditEvent{OrgID: req.OrgID, RequestID: req.ID, Action: domain.ActionSigned, Actor: actorSigner, Detail: strings.TrimPrefix(ipDetail(req.SignerIP), ", ")})
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrExpired
	}
	if after != nil {
		return nil, after
	}
	u.log.WithFields(logrus.Fields{"request_id": out.ID, "document_type": out.DocumentType}).Info("document signed")
	return out, nil
}

// rejectOTP counts a wrong OTP. outcome is the error reported to the signer
// once the transaction commits.
func (u *Usecase) rejectOTP(ctx context.Context, r uow.Repos, req *domain.Request) (outcome, err error) {
	req.OTPAttempts++
	remaining := u.cfg.MaxOTPAttempts - req.OTPAttempts
	audit := &domain.AuditEvent{OrgID: req.OrgID, RequestID: req.ID, Action: domain.ActionOTPRejected, Actor: actorSigner, Detail: fmt.Sprintf("attempt %d", req.OTPAttempts)}
	if err := r.ESign.AppendAudit(ctx, audit); err != nil {
		return nil, err
	}
	if remaining > 0 {
		return domain.ErrInvalidOTP.WithMeta(map[string]any{"remaining_attempts": remaining}), r.ESign.Save(ctx, req)
	}
	req.Status = domain.StatusFailed
	if err := r.ESign.Save(ctx, req); err != nil {
		return nil, err
	}
	return domain.ErrAttemptsExceeded, r.ESign.AppendAudit(ctx, &domain.AuditEvent{OrgID: req.OrgID, RequestID: req.ID, Action: domain.ActionFailed, Actor: actorSystem, Detail: "otp attempts exhausted"})
}

// HandleNotifyJob sends the signing link by SMS and email. The job fails
// only when every available channel failed.
func (u *Usecase) HandleNotifyJob(ctx context.Context, j *jobdomain.Job) (any, error) {
	var in NotifyPayload
	if err := job.DecodePayload(j, &in); err != nil {
		return nil, err
	}
	req, err := u.uow.Repos().ESign.GetByID(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	res := NotifyResult{SMS: "skipped", Email: "skipped"}
	if !req.Open() {
		return res, nil
	}

	link := u.signingURL(req.AccessToken)
	expires := req.TokenExpiresAt.Format("02 Jan 2006 15:04 MST")
	var (
		audits []domain.AuditEvent
		tried  int
		failed int
	)
	note := func(channel string, err error) string {
		tried++
		ev := domain.AuditEvent{OrgID: req.OrgID, RequestID: req.ID, Action: domain.ActionNotified, Actor: actorSystem, Detail: channel}
		if err != nil {
			failed++
			ev.Action = domain.ActionNotifyFailed
			ev.Detail = channel + ": " + err.Error()
			u.log.WithError(err).WithFields(logrus.Fields{"request_id": req.ID, "channel": channel}).Warn("signer notification failed")
			audits = append(audits, ev)
			return "failed"
		}
		audits = append(audits, ev)
		return "sent"
	}
	if req.SignerPhone != "" && u.sms != nil {
		body := fmt.Sprintf("Dear %s, please sign your %s: %s (valid till %s)", req.SignerName, humanType(req.DocumentType), link, expires)
		res.SMS = note("sms", u.sms.SendSMS(ctx, req.SignerPhone, body))
	}
	if req.SignerEmail != "" && u.email != nil {
		subject := "Please sign your " + humanType(req.DocumentType)
		body := fmt.Sprintf("<p>Dear %s,</p><p>Your %s is ready. <a href=\"%s\">Review and sign</a> before %s.</p>",
			html.EscapeString(req.SignerName), humanType(req.DocumentType), html.EscapeString(link), expires)
		res.Email = note("email", u.email.SendEmail(ctx, req.SignerEmail, subject, body))
	}

	if len(audits) > 0 {
		if err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
			for i := range audits {
				if err := r.ESign.AppendAudit(ctx, &audits[i]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	if tried > 0 && failed == tried {
		return res, fmt.Errorf("all %d notification channels failed", tried)
	}
	return res, nil
}

// ExpireStale marks open requests past their token expiry as expired.
func (u *Usecase) ExpireStale(ctx context.Context) (int, error) {
	stale, err := u.uow.Repos().ESign.ListOpenExpired(ctx, u.now(), expireBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range stale {
		var done bool
		err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
			req, err := u.lock(ctx, r, s.AccessToken)
			if err != nil {
				return err
			}
			done, err = u.enforceExpiry(ctx, r, req)
			return err
		})
		if err != nil {
			return n, err
		}
		if done {
			n++
		}
	}
	if n > 0 {
		u.log.WithField("count", n).Info("expired stale signing requests")
	}
	return n, nil
}

func (u *Usecase) lock(ctx context.Context, r uow.Repos, token string) (*domain.Request, error) {
	req, err := r.ESign.GetByTokenForUpdate(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return req, err
}

// enforceExpiry expires an open request whose token has lapsed and reports
// whether it did so.
func (u *Usecase) enforceExpiry(ctx context.Context, r uow.Repos, req *domain.Request) (bool, error) {
	if !req.Open() || !req.ExpiredAt(u.now()) {
		return false, nil
	}
	return true, u.expire(ctx, r, req, actorSystem)
}

func (u *Usecase) expire(ctx context.Context, r uow.Repos, req *domain.Request, actor string) error {
	req.Status = domain.StatusExpired
	if err := r.ESign.Save(ctx, req); err != nil {
		return err
	}
	return r.ESign.AppendAudit(ctx, &domain.AuditEvent{OrgID: req.OrgID, RequestID: req.ID, Action: domain.ActionExpired, Actor: actor})
}

func closedError(req *domain.Request) error {
	switch req.Status {
	case domain.StatusSigned:
		return domain.ErrAlreadySigned
	case domain.StatusFailed:
		return domain.ErrFailed
	case domain.StatusExpired:
		return domain.ErrExpired
	}
	return nil
}

func otpState(req *domain.Request) error {
	if err := closedError(req); err != nil {
		return err
	}
	if req.Status != domain.StatusOTPSent {
		return domain.ErrOTPNotSent
	}
	return nil
}

func ipDetail(ip string) string {
	if ip == "" {
		return ""
	}
	return ", ip " + ip
}

func humanType(t document.Type) string {
	return strings.ReplaceAll(string(t), "_", " ")
}
