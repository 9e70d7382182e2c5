package verification

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	Save(ctx context.Context, r *Record) error
	GetForUpdate(ctx context.Context, applicationID uint64, t Type) (*Record, error)
	ListByApplication(ctx context.Context, applicationID uint64) ([]Record, error)
}
