package applicationmock

import (
	"context"
	"errors"
	"testing"

	domain "github.com/EcrTech/FL-sub005/internal/domain/application"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	a := &domain.Application{ApplicationNumber: "APP-1"}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Application) error {
			called = true
			if gotCtx != ctx || got != a {
				t.Fatalf("Create args mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, a); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Create(ctx, a); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_GetByNumberForUpdate(t *testing.T) {
	ctx := context.Background()
	want := &domain.Application{ApplicationNumber: "APP-2"}

	m := &Repo{
		GetByNumberForUpdateFn: func(_ context.Context, orgID, number string) (*domain.Application, error) {
			if orgID != "org" || number != "APP-2" {
				t.Fatalf("args = %s %s", orgID, number)
			}
			return want, nil
		},
	}
	got, err := m.GetByNumberForUpdate(ctx, "org", "APP-2")
	if err != nil || got != want {
		t.Fatalf("GetByNumberForUpdate = %v, %v", got, err)
	}

	m = &Repo{}
	if _, err := m.GetByNumberForUpdate(ctx, "org", "APP-2"); !errors.Is(err, context.Canceled) {
		t.Fatalf("default: want context.Canceled, got %v", err)
	}
}

func TestRepo_ListDefaultsAreEmpty(t *testing.T) {
	m := &Repo{}
	aps, err := m.ListApplicants(context.Background(), 1)
	if err != nil || len(aps) != 0 {
		t.Fatalf("ListApplicants default = %v, %v", aps, err)
	}
	trs, err := m.ListTransitions(context.Background(), 1)
	if err != nil || len(trs) != 0 {
		t.Fatalf("ListTransitions default = %v, %v", trs, err)
	}
}
