package gormrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/testutil/testdb"

	"gorm.io/gorm"
)

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	u := gormrepo.NewGormUoW(db)

	err := u.WithinTx(ctx, func(r uow.Repos) error {
		a := makeApplication("org-a", "APP-COMMIT")
		if err := r.Applications.Create(ctx, a); err != nil {
			return err
		}
		if a.ID == 0 {
			t.Fatalf("auto ID not set")
		}
		return r.Applications.AddTransition(ctx, &application.StageTransition{
			OrgID: "org-a", ApplicationID: a.ID, ToStage: application.StageLead, Actor: "u1",
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	got, err := u.Repos().Applications.GetByNumber(ctx, "org-a", "APP-COMMIT")
	if err != nil {
		t.Fatalf("application not visible after commit: %v", err)
	}
	tr, err := u.Repos().Applications.ListTransitions(ctx, got.ID)
	if err != nil || len(tr) != 1 {
		t.Fatalf("transitions = %+v, %v", tr, err)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	u := gormrepo.NewGormUoW(db)

	stop := errors.New("stop")
	err := u.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Applications.Create(ctx, makeApplication("org-a", "APP-ROLL")); err != nil {
			return err
		}
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("want stop, got %v", err)
	}
	if _, err := u.Repos().Applications.GetByNumber(ctx, "org-a", "APP-ROLL"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want not found after rollback, got %v", err)
	}
}

func TestGormUoW_WithinApplicationTx_Commit(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	u := gormrepo.NewGormUoW(db)
	if err := u.Repos().Applications.Create(ctx, makeApplication("org-a", "APP-LOCK")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := u.WithinApplicationTx(ctx, "org-a", "APP-LOCK", func(r uow.Repos, a *application.Application) error {
		if a.ApplicationNumber != "APP-LOCK" || a.Stage != application.StageLead {
			t.Fatalf("unexpected application passed to fn: %+v", a)
		}
		a.Stage = application.StageDocuments
		return r.Applications.Save(ctx, a)
	})
	if err != nil {
		t.Fatalf("WithinApplicationTx: %v", err)
	}
	got, _ := u.Repos().Applications.GetByNumber(ctx, "org-a", "APP-LOCK")
	if got.Stage != application.StageDocuments {
		t.Fatalf("stage = %s, want documents", got.Stage)
	}
}

func TestGormUoW_WithinApplicationTx_OtherOrg(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	u := gormrepo.NewGormUoW(db)
	_ = u.Repos().Applications.Create(ctx, makeApplication("org-a", "APP-X"))

	err := u.WithinApplicationTx(ctx, "org-b", "APP-X", func(uow.Repos, *application.Application) error {
		t.Fatalf("fn must not run for another org")
		return nil
	})
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
