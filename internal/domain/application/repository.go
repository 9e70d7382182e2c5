package application

import "context"

type Repository interface {
	Create(ctx context.Context, a *Application) error
	Save(ctx context.Context, a *Application) error
	GetByNumber(ctx context.Context, orgID, number string) (*Application, error)
	// Row lock for stage changes; callers must be inside a transaction.
	GetByNumberForUpdate(ctx context.Context, orgID, number string) (*Application, error)
	GetByID(ctx context.Context, id uint64) (*Application, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Application, error)
	// FindByNumber is unscoped and only for signed webhook callers.
	FindByNumber(ctx context.Context, number string) (*Application, error)

	CreateApplicant(ctx context.Context, ap *Applicant) error
	ListApplicants(ctx context.Context, applicationID uint64) ([]Applicant, error)

	AddTransition(ctx context.Context, t *StageTransition) error
	ListTransitions(ctx context.Context, applicationID uint64) ([]StageTransition, error)
}
