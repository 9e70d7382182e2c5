package uow

import (
	"context"

	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/collection"
	"github.com/EcrTech/FL-sub005/internal/domain/contact"
	"github.com/EcrTech/FL-sub005/internal/domain/document"
	"github.com/EcrTech/FL-sub005/internal/domain/esign"
	"github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	"github.com/EcrTech/FL-sub005/internal/domain/mandate"
	"github.com/EcrTech/FL-sub005/internal/domain/verification"
)

// Repos is every repository bound to the same transaction (or to the pool
// when obtained from UnitOfWork.Repos).
type Repos struct {
	Applications  application.Repository
	Verifications verification.Repository
	Documents     document.Repository
	ESign         esign.Repository
	Mandates      mandate.Repository
	Collections   collection.Repository
	Schedule      ledger.ScheduleRepository
	Payments      ledger.PaymentRepository
	Events        ledger.EventRepository
	Contacts      contact.Repository
	Batches       contact.BatchRepository
	Jobs          job.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the application row first, scoped to orgID, then pass it in
	WithinApplicationTx(ctx context.Context, orgID, number string, fn func(r Repos, a *application.Application) error) error
	// non-transactional repositories for reads and single writes
	Repos() Repos
}
