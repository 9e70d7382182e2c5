package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	domain "github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/contact"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/domain/verification"
	"github.com/EcrTech/FL-sub005/pkg/id"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxTenureMonths = 360
	// Defaults for leads created from a contact import, which carries only
	// an amount.
	leadTenureMonths = 12
)

var (
	leadInterestRate = decimal.NewFromInt(18)
	maxInterestRate  = decimal.NewFromInt(100)
)

type Usecase struct {
	uow uow.UnitOfWork
	log logrus.FieldLogger
	now func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, log logrus.FieldLogger) *Usecase {
	return &Usecase{uow: tx, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) Create(ctx context.Context, p access.Principal, in CreateInput) (*ApplicationDTO, error) {
	if err := p.Require(access.PermApplicationsCreate); err != nil {
		return nil, err
	}
	if err := validateTerms(in.RequestedAmount, in.TenureMonths, in.InterestRate); err != nil {
		return nil, err
	}
	applicants, err := primaryFirst(in.Applicants)
	if err != nil {
		return nil, err
	}

	now := u.now()
	a := &domain.Application{
		OrgID:             p.OrgID,
		ApplicationNumber: id.NewApplicationNumber(now),
		Stage:             domain.StageLead,
		Status:            domain.StatusDraft,
		RequestedAmount:   in.RequestedAmount,
		TenureMonths:      in.TenureMonths,
		InterestRate:      in.InterestRate,
		AssignedTo:        strings.TrimSpace(in.AssignedTo),
		ContactID:         in.ContactID,
		CreatedBy:         p.UserID,
		StageUpdatedAt:    now,
	}
	var dto *ApplicationDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Applications.Create(ctx, a); err != nil {
			return err
		}
		created := make([]domain.Applicant, 0, len(applicants))
		for _, x := range applicants {
			ap := toApplicant(x)
			ap.OrgID = a.OrgID
			ap.ApplicationID = a.ID
			if err := r.Applications.CreateApplicant(ctx, &ap); err != nil {
				return err
			}
			created = append(created, ap)
		}
		tr := &domain.StageTransition{OrgID: a.OrgID, ApplicationID: a.ID, ToStage: domain.StageLead, Actor: p.UserID}
		if err := r.Applications.AddTransition(ctx, tr); err != nil {
			return err
		}
		dto = &ApplicationDTO{Application: *a, Applicants: created, Transitions: []domain.StageTransition{*tr}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"org_id": a.OrgID, "application_number": a.ApplicationNumber}).Info("application created")
	return dto, nil
}

// CreateLead opens a lead for an imported contact.
func (u *Usecase) CreateLead(ctx context.Context, p access.Principal, c contact.Contact, amount decimal.Decimal) (*domain.Application, error) {
	first := strings.TrimSpace(c.FirstName)
	if first == "" {
		first = c.Phone
	}
	if first == "" {
		first = c.Email
	}
	contactID := c.ID
	dto, err := u.Create(ctx, p, CreateInput{
		RequestedAmount: amount,
		TenureMonths:    leadTenureMonths,
		InterestRate:    leadInterestRate,
		ContactID:       &contactID,
		Applicants: []ApplicantInput{{
			IsPrimary: true,
			FirstName: first,
			LastName:  c.LastName,
			Phone:     c.Phone,
			Email:     c.Email,
		}},
	})
	if err != nil {
		return nil, err
	}
	return &dto.Application, nil
}

func (u *Usecase) Get(ctx context.Context, p access.Principal, number string) (*ApplicationDTO, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	r := u.uow.Repos()
	a, err := r.Applications.GetByNumber(ctx, p.OrgID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u.load(ctx, r, a)
}

// Advance moves along a plain forward edge. The verification -> assessment
// edge needs every required verification to have succeeded and
// disbursed -> closed needs a fully paid schedule.
func (u *Usecase) Advance(ctx context.Context, p access.Principal, number string, to domain.Stage, note string) (*ApplicationDTO, error) {
	if err := p.Require(access.PermApplicationsManage); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperr.ErrInvalid.Msg("unknown stage %q", to).WithMeta(map[string]any{"field": "to_stage"})
	}
	var dto *ApplicationDTO
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *domain.Application) error {
		if !domain.CanTransition(a.Stage, to) {
			return domain.TransitionError(a.Stage, to)
		}
		if !domain.IsManualEdge(a.Stage, to) {
			return domain.ErrManualTransitionOnly.WithMeta(map[string]any{"requested_stage": string(to)})
		}
		switch to {
		case domain.StageAssessment:
			if err := verificationGate(ctx, r, a.ID); err != nil {
				return err
			}
		case domain.StageClosed:
			if err := scheduleGate(ctx, r, a.ID); err != nil {
				return err
			}
		}
		if err := u.move(ctx, r, a, to, p.UserID, note); err != nil {
			return err
		}
		var err error
		dto, err = u.load(ctx, r, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func verificationGate(ctx context.Context, r uow.Repos, appID uint64) error {
	recs, err := r.Verifications.ListByApplication(ctx, appID)
	if err != nil {
		return err
	}
	ok := make(map[verification.Type]bool, len(recs))
	for _, rec := range recs {
		ok[rec.Type] = rec.Status == verification.StatusSuccess
	}
	var missing []string
	for _, t := range verification.Required {
		if !ok[t] {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		return domain.ErrVerificationPending.WithMeta(map[string]any{"missing": missing})
	}
	return nil
}

func scheduleGate(ctx context.Context, r uow.Repos, appID uint64) error {
	rows, err := r.Schedule.ListByApplication(ctx, appID)
	if err != nil {
		return err
	}
	unpaid := 0
	for _, e := range rows {
		if e.Status != ledger.EntryPaid {
			unpaid++
		}
	}
	if unpaid > 0 {
		return domain.ErrScheduleOutstanding.WithMeta(map[string]any{"unpaid_installments": unpaid})
	}
	return nil
}

// Decide records an approval (approval -> sanctioned) or a rejection.
func (u *Usecase) Decide(ctx context.Context, p access.Principal, number string, in DecisionInput) (*ApplicationDTO, error) {
	var to domain.Stage
	switch strings.ToLower(strings.TrimSpace(in.Decision)) {
	case "approve", "approved":
		if err := p.Require(access.PermApplicationsApprove); err != nil {
			return nil, err
		}
		if !in.ApprovedAmount.Valid || !in.ApprovedAmount.Decimal.IsPositive() {
			return nil, domain.ErrDecisionAmount
		}
		to = domain.StageSanctioned
	case "reject", "rejected":
		if err := p.Require(access.PermApplicationsReject); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Reason) == "" {
			return nil, domain.ErrDecisionReason
		}
		to = domain.StageRejected
	default:
		return nil, domain.ErrUnknownDecision
	}

	var dto *ApplicationDTO
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *domain.Application) error {
		if to == domain.StageSanctioned && a.Stage != domain.StageApproval {
			return domain.TransitionError(a.Stage, to)
		}
		if !domain.CanTransition(a.Stage, to) {
			return domain.TransitionError(a.Stage, to)
		}
		if to == domain.StageSanctioned {
			if in.ApprovedAmount.Decimal.GreaterThan(a.RequestedAmount) {
				return domain.ErrDecisionAmount.WithMeta(map[string]any{"requested_amount": a.RequestedAmount.StringFixed(2)})
			}
			a.ApprovedAmount = in.ApprovedAmount.Decimal.Round(2)
		}
		now := u.now()
		a.DecisionBy = p.UserID
		a.DecisionReason = strings.TrimSpace(in.Reason)
		a.DecidedAt = &now
		if err := u.move(ctx, r, a, to, p.UserID, a.DecisionReason); err != nil {
			return err
		}
		var err error
		dto, err = u.load(ctx, r, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"application_number": number, "stage": to, "by": p.UserID}).Info("decision recorded")
	return dto, nil
}

func (u *Usecase) Disburse(ctx context.Context, p access.Principal, in DisburseInput) (*DisbursementDTO, error) {
	if err := p.Require(access.PermPaymentsManage); err != nil {
		return nil, err
	}
	return u.disburse(ctx, p, in)
}

// DisburseFromWebhook resolves the organization from the application number
// for a signed disbursement callback.
func (u *Usecase) DisburseFromWebhook(ctx context.Context, in DisburseInput) (*DisbursementDTO, error) {
	a, err := u.uow.Repos().Applications.FindByNumber(ctx, in.Number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u.disburse(ctx, access.System(a.OrgID), in)
}

func (u *Usecase) disburse(ctx context.Context, p access.Principal, in DisburseInput) (*DisbursementDTO, error) {
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		return nil, apperr.ErrInvalid.Msg("disbursement reference is required").WithMeta(map[string]any{"field": "reference"})
	}
	if !in.Amount.IsPositive() {
		return nil, domain.ErrDisbursementAmount
	}
	at := u.now()
	if in.DisbursedAt != nil && !in.DisbursedAt.IsZero() {
		at = in.DisbursedAt.UTC()
	}

	var dto *DisbursementDTO
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, in.Number, func(r uow.Repos, a *domain.Application) error {
		if err := r.Events.Record(ctx, &ledger.ProcessedEvent{Source: "disbursement", EventKey: ref, OrgID: a.OrgID}); err != nil {
			if errors.Is(err, ledger.ErrAlreadyProcessed) {
				return domain.ErrAlreadyDisbursed.WithMeta(map[string]any{"reference": ref})
			}
			return err
		}
		if a.Stage != domain.StageSanctioned {
			return domain.TransitionError(a.Stage, domain.StageDisbursed)
		}
		if in.Amount.GreaterThan(a.ApprovedAmount) {
			return domain.ErrDisbursementAmount.WithMeta(map[string]any{"approved_amount": a.ApprovedAmount.StringFixed(2)})
		}

		amount := in.Amount.Round(2)
		a.DisbursedAmount = amount
		a.OutstandingPrincipal = amount
		a.DisbursementRef = ref
		a.DisbursedAt = &at
		if err := u.move(ctx, r, a, domain.StageDisbursed, p.UserID, "disbursement "+ref); err != nil {
			return err
		}

		rows := ledger.GenerateSchedule(amount, a.InterestRate, a.TenureMonths, at)
		for i := range rows {
			rows[i].OrgID = a.OrgID
			rows[i].ApplicationID = a.ID
		}
		if err := r.Schedule.CreateBatch(ctx, rows); err != nil {
			return err
		}
		base, err := u.load(ctx, r, a)
		if err != nil {
			return err
		}
		dto = &DisbursementDTO{ApplicationDTO: *base, Schedule: rows}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{
		"application_number": in.Number,
		"amount":             in.Amount.StringFixed(2),
		"reference":          ref,
		"installments":       len(dto.Schedule),
	}).Info("application disbursed")
	return dto, nil
}

// Assign is a no-op reporting Changed=false when the assignee is unchanged.
func (u *Usecase) Assign(ctx context.Context, p access.Principal, number, assignee string) (*AssignResult, error) {
	if err := p.Require(access.PermApplicationsAssign); err != nil {
		return nil, err
	}
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return nil, domain.ErrAssigneeRequired
	}
	res := &AssignResult{ApplicationNumber: number, AssignedTo: assignee}
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *domain.Application) error {
		if a.AssignedTo == assignee {
			return nil
		}
		a.AssignedTo = assignee
		res.Changed = true
		return r.Applications.Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) Cancel(ctx context.Context, p access.Principal, number, reason string) (*ApplicationDTO, error) {
	if err := p.Require(access.PermApplicationsManage); err != nil {
		return nil, err
	}
	var dto *ApplicationDTO
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, number, func(r uow.Repos, a *domain.Application) error {
		if !domain.CanTransition(a.Stage, domain.StageCancelled) {
			return domain.TransitionError(a.Stage, domain.StageCancelled)
		}
		if err := u.move(ctx, r, a, domain.StageCancelled, p.UserID, strings.TrimSpace(reason)); err != nil {
			return err
		}
		var err error
		dto, err = u.load(ctx, r, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// CreateRepeat opens a follow-on loan for a borrower whose previous loan was
// disbursed. Applicants are copied and the new application starts at
// assessment because the borrower's KYC is already on file.
func (u *Usecase) CreateRepeat(ctx context.Context, p access.Principal, parentNumber string, in RepeatInput) (*ApplicationDTO, error) {
	if err := p.Require(access.PermApplicationsCreate); err != nil {
		return nil, err
	}
	if err := validateTerms(in.RequestedAmount, in.TenureMonths, in.InterestRate); err != nil {
		return nil, err
	}
	var dto *ApplicationDTO
	err := u.uow.WithinApplicationTx(ctx, p.OrgID, parentNumber, func(r uow.Repos, parent *domain.Application) error {
		if parent.Stage != domain.StageDisbursed && parent.Stage != domain.StageClosed {
			return domain.ErrParentNotEligible.WithMeta(map[string]any{"parent_stage": string(parent.Stage)})
		}
		now := u.now()
		assignee := strings.TrimSpace(in.AssignedTo)
		if assignee == "" {
			assignee = parent.AssignedTo
		}
		parentID := parent.ID
		child := &domain.Application{
			OrgID:               parent.OrgID,
			ApplicationNumber:   id.NewApplicationNumber(now),
			Stage:               domain.StageAssessment,
			Status:              domain.StatusFor(domain.StageAssessment),
			RequestedAmount:     in.RequestedAmount,
			TenureMonths:        in.TenureMonths,
			InterestRate:        in.InterestRate,
			AssignedTo:          assignee,
			ParentApplicationID: &parentID,
			ContactID:           parent.ContactID,
			CreatedBy:           p.UserID,
			StageUpdatedAt:      now,
		}
		if err := r.Applications.Create(ctx, child); err != nil {
			return err
		}
		applicants, err := r.Applications.ListApplicants(ctx, parent.ID)
		if err != nil {
			return err
		}
		for _, src := range applicants {
			ap := src.CopyForRepeat()
			ap.OrgID = child.OrgID
			ap.ApplicationID = child.ID
			if err := r.Applications.CreateApplicant(ctx, &ap); err != nil {
				return err
			}
		}
		if err := r.Applications.AddTransition(ctx, &domain.StageTransition{
			OrgID:         child.OrgID,
			ApplicationID: child.ID,
			ToStage:       domain.StageAssessment,
			Actor:         p.UserID,
			Note:          "repeat of " + parent.ApplicationNumber,
		}); err != nil {
			return err
		}
		dto, err = u.load(ctx, r, child)
		if err != nil {
			return err
		}
		dto.ParentApplicationNumber = parent.ApplicationNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) Schedule(ctx context.Context, p access.Principal, number string) ([]ledger.ScheduleEntry, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	r := u.uow.Repos()
	a, err := r.Applications.GetByNumber(ctx, p.OrgID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.Schedule.ListByApplication(ctx, a.ID)
}

// move applies a stage change and appends the history row. Callers hold the
// application row lock.
func (u *Usecase) move(ctx context.Context, r uow.Repos, a *domain.Application, to domain.Stage, actor, note string) error {
	from := a.Stage
	a.Stage = to
	a.Status = domain.StatusFor(to)
	a.StageUpdatedAt = u.now()
	if err := r.Applications.Save(ctx, a); err != nil {
		return err
	}
	if err := r.Applications.AddTransition(ctx, &domain.StageTransition{
		OrgID:         a.OrgID,
		ApplicationID: a.ID,
		FromStage:     from,
		ToStage:       to,
		Actor:         actor,
		Note:          note,
	}); err != nil {
		return err
	}
	u.log.WithFields(logrus.Fields{"application_number": a.ApplicationNumber, "from": from, "to": to, "actor": actor}).Info("stage changed")
	return nil
}

func (u *Usecase) load(ctx context.Context, r uow.Repos, a *domain.Application) (*ApplicationDTO, error) {
	aps, err := r.Applications.ListApplicants(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	trs, err := r.Applications.ListTransitions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &ApplicationDTO{Application: *a, Applicants: aps, Transitions: trs}, nil
}

func validateTerms(amount decimal.Decimal, tenure int, rate decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.ErrInvalid.Msg("requested amount must be positive").WithMeta(map[string]any{"field": "requested_amount"})
	}
	if tenure < 1 || tenure > maxTenureMonths {
		return apperr.ErrInvalid.Msg("tenure must be between 1 and %d months", maxTenureMonths).WithMeta(map[string]any{"field": "tenure_months"})
	}
	if rate.IsNegative() || rate.GreaterThan(maxInterestRate) {
		return apperr.ErrInvalid.Msg("interest rate must be between 0 and 100").WithMeta(map[string]any{"field": "interest_rate"})
	}
	return nil
}

// primaryFirst checks there is exactly one primary applicant and returns the
// list with it first. A lone applicant is taken as primary.
func primaryFirst(in []ApplicantInput) ([]ApplicantInput, error) {
	if len(in) == 1 {
		in[0].IsPrimary = true
	}
	primary := -1
	for i, ap := range in {
		if strings.TrimSpace(ap.FirstName) == "" {
			return nil, apperr.ErrInvalid.Msg("applicant %d: first name is required", i+1).WithMeta(map[string]any{"field": fmt.Sprintf("applicants[%d].first_name", i)})
		}
		if !ap.IsPrimary {
			continue
		}
		if primary >= 0 {
			return nil, domain.ErrPrimaryApplicant
		}
		primary = i
	}
	if primary < 0 {
		return nil, domain.ErrPrimaryApplicant
	}
	out := make([]ApplicantInput, 0, len(in))
	out = append(out, in[primary])
	out = append(out, in[:primary]...)
	return append(out, in[primary+1:]...), nil
}

func toApplicant(in ApplicantInput) domain.Applicant {
	return domain.Applicant{
		IsPrimary:      in.IsPrimary,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          strings.TrimSpace(in.Email),
		PAN:            strings.ToUpper(strings.TrimSpace(in.PAN)),
		Aadhaar:        strings.TrimSpace(in.Aadhaar),
		DateOfBirth:    strings.TrimSpace(in.DateOfBirth),
		Address:        in.Address,
		EmploymentType: in.EmploymentType,
		MonthlyIncome:  in.MonthlyIncome,
	}
}
