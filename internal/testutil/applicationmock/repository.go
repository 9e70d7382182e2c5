package applicationmock

import (
	"context"

	domain "github.com/EcrTech/FL-sub005/internal/domain/application"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to no-ops; reads default to context.Canceled.
type Repo struct {
	CreateFn               func(ctx context.Context, a *domain.Application) error
	SaveFn                 func(ctx context.Context, a *domain.Application) error
	GetByNumberFn          func(ctx context.Context, orgID, number string) (*domain.Application, error)
	GetByNumberForUpdateFn func(ctx context.Context, orgID, number string) (*domain.Application, error)
	GetByIDFn              func(ctx context.Context, id uint64) (*domain.Application, error)
	GetByIDForUpdateFn     func(ctx context.Context, id uint64) (*domain.Application, error)
	FindByNumberFn         func(ctx context.Context, number string) (*domain.Application, error)
	CreateApplicantFn      func(ctx context.Context, ap *domain.Applicant) error
	ListApplicantsFn       func(ctx context.Context, applicationID uint64) ([]domain.Applicant, error)
	AddTransitionFn        func(ctx context.Context, t *domain.StageTransition) error
	ListTransitionsFn      func(ctx context.Context, applicationID uint64) ([]domain.StageTransition, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.Application) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, a *domain.Application) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByNumber(ctx context.Context, orgID, number string) (*domain.Application, error) {
	if m.GetByNumberFn != nil {
		return m.GetByNumberFn(ctx, orgID, number)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByNumberForUpdate(ctx context.Context, orgID, number string) (*domain.Application, error) {
	if m.GetByNumberForUpdateFn != nil {
		return m.GetByNumberForUpdateFn(ctx, orgID, number)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Application, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Application, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) FindByNumber(ctx context.Context, number string) (*domain.Application, error) {
	if m.FindByNumberFn != nil {
		return m.FindByNumberFn(ctx, number)
	}
	return nil, context.Canceled
}

func (m *Repo) CreateApplicant(ctx context.Context, ap *domain.Applicant) error {
	if m.CreateApplicantFn != nil {
		return m.CreateApplicantFn(ctx, ap)
	}
	return nil
}

func (m *Repo) ListApplicants(ctx context.Context, applicationID uint64) ([]domain.Applicant, error) {
	if m.ListApplicantsFn != nil {
		return m.ListApplicantsFn(ctx, applicationID)
	}
	return nil, nil
}

func (m *Repo) AddTransition(ctx context.Context, t *domain.StageTransition) error {
	if m.AddTransitionFn != nil {
		return m.AddTransitionFn(ctx, t)
	}
	return nil
}

func (m *Repo) ListTransitions(ctx context.Context, applicationID uint64) ([]domain.StageTransition, error) {
	if m.ListTransitionsFn != nil {
		return m.ListTransitionsFn(ctx, applicationID)
	}
	return nil, nil
}
