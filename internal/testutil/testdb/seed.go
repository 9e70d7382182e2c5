package testdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedApplication inserts an application in the given stage with one primary
// applicant. Amounts are 100000 requested and approved at 12% over 12 months.
func SeedApplication(t *testing.T, db *gorm.DB, orgID string, stage application.Stage) *application.Application {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	a := &application.Application{
		OrgID:             orgID,
		ApplicationNumber: fmt.Sprintf("APP-%s-%d", orgID, seq.Add(1)),
		Stage:             stage,
		Status:            application.StatusFor(stage),
		RequestedAmount:   decimal.NewFromInt(100000),
		ApprovedAmount:    decimal.NewFromInt(100000),
		TenureMonths:      12,
		InterestRate:      decimal.NewFromInt(12),
		StageUpdatedAt:    now,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}
	ap := &application.Applicant{
		OrgID:         orgID,
		ApplicationID: a.ID,
		IsPrimary:     true,
		FirstName:     "Asha",
		LastName:      "Rao",
		Phone:         "9876543210",
		Email:         "asha@example.com",
		PAN:           "ABCDE1234F",
		Aadhaar:       "123412341234",
	}
	if err := db.WithContext(ctx).Create(ap).Error; err != nil {
		t.Fatalf("seed applicant: %v", err)
	}
	return a
}

// SeedSchedule disburses principal on the application and writes its
// schedule rows.
func SeedSchedule(t *testing.T, db *gorm.DB, a *application.Application, principal decimal.Decimal, disbursedAt time.Time) []ledger.ScheduleEntry {
	t.Helper()
	rows := ledger.GenerateSchedule(principal, a.InterestRate, a.TenureMonths, disbursedAt)
	for i := range rows {
		rows[i].OrgID = a.OrgID
		rows[i].ApplicationID = a.ID
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	a.DisbursedAmount = principal
	a.OutstandingPrincipal = principal
	if err := db.Save(a).Error; err != nil {
		t.Fatalf("seed disbursement: %v", err)
	}
	return rows
}
