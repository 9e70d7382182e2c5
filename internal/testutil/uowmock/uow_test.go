package uowmock

import (
	"context"
	"errors"
	"testing"

	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
	"github.com/EcrTech/FL-sub005/internal/testutil/applicationmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()
	apps := &applicationmock.Repo{}
	repos := uow.Repos{Applications: apps}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			return fn(repos)
		},
	}
	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Applications != apps {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil || !innerCalled {
		t.Fatalf("WithinTx: err=%v called=%v", err, innerCalled)
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error { return sentinel },
	}
	if err := m.WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Defaults_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	err := m.WithinApplicationTx(ctx, "org", "APP", func(uow.Repos, *application.Application) error { return nil })
	if !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinApplicationTx default: want errUnimplemented, got %v", err)
	}
	if r := m.Repos(); r.Applications != nil {
		t.Fatalf("Repos default should be empty")
	}
}

func TestUoW_WithRepos_LocksAndForwards(t *testing.T) {
	apps := &applicationmock.Repo{}
	lock := &application.Application{ID: 7, ApplicationNumber: "APP-7"}
	m := New().WithRepos(uow.Repos{Applications: apps}, func(orgID, number string) (*application.Application, error) {
		if orgID != "org" || number != "APP-7" {
			return nil, application.ErrNotFound
		}
		return lock, nil
	})

	err := m.WithinApplicationTx(context.Background(), "org", "APP-7", func(r uow.Repos, a *application.Application) error {
		if r.Applications != apps || a != lock {
			t.Fatalf("WithinApplicationTx: not forwarded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinApplicationTx: %v", err)
	}
	err = m.WithinApplicationTx(context.Background(), "other", "APP-7", func(uow.Repos, *application.Application) error {
		t.Fatalf("fn must not run when the lock fails")
		return nil
	})
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if m.Repos().Applications != apps {
		t.Fatalf("Repos not forwarded")
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinApplicationTx(func(context.Context, string, string, func(uow.Repos, *application.Application) error) error {
			return nil
		})
	if m.WithinTxFn == nil || m.WithinApplicationTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}
	m.Reset()
	if m.WithinTxFn != nil || m.WithinApplicationTxFn != nil || m.ReposFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
