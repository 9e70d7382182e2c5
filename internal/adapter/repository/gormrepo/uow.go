package gormrepo

import (
	"context"
	"errors"

	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Applications:  &ApplicationRepository{db: db},
		Verifications: &VerificationRepository{db: db},
		Documents:     &DocumentRepository{db: db},
		ESign:         &ESignRepository{db: db},
		Mandates:      &MandateRepository{db: db},
		Collections:   &CollectionRepository{db: db},
		Schedule:      &ScheduleRepository{db: db},
		Payments:      &PaymentRepository{db: db},
		Events:        &EventRepository{db: db},
		Contacts:      &ContactRepository{db: db},
		Batches:       &BatchRepository{db: db},
		Jobs:          &JobRepository{db: db},
	}
}

func (u *GormUoW) Repos() uow.Repos { return reposFor(u.db) }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinApplicationTx(ctx context.Context, orgID, number string, fn func(r uow.Repos, a *application.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the application row up-front to serialise stage changes
		a, err := r.Applications.GetByNumberForUpdate(ctx, orgID, number)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return application.ErrNotFound
			}
			return err
		}
		return fn(r, a)
	})
}
