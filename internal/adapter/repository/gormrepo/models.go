package gormrepo

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

	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&application.Application{},
		&application.Applicant{},
		&application.StageTransition{},
		&verification.Record{},
		&document.GeneratedDocument{},
		&document.Blob{},
		&esign.Request{},
		&esign.AuditEvent{},
		&mandate.Mandate{},
		&collection.Transaction{},
		&ledger.ScheduleEntry{},
		&ledger.Payment{},
		&ledger.ProcessedEvent{},
		&contact.Contact{},
		&contact.ImportBatch{},
		&job.Job{},
	}
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(Models()...)
}
