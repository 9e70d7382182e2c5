package uowmock

import (
	"context"
	"errors"

	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn            func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinApplicationTxFn func(ctx context.Context, orgID, number string, fn func(r uow.Repos, a *application.Application) error) error
	ReposFn               func() uow.Repos
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinApplicationTx(fn func(context.Context, string, string, func(uow.Repos, *application.Application) error) error) *UoW {
	m.WithinApplicationTxFn = fn
	return m
}

// WithRepos makes every entry point hand out the same repos, with a locked
// application supplied by the caller.
func (m *UoW) WithRepos(r uow.Repos, lock func(orgID, number string) (*application.Application, error)) *UoW {
	m.ReposFn = func() uow.Repos { return r }
	m.WithinTxFn = func(_ context.Context, fn func(uow.Repos) error) error { return fn(r) }
	m.WithinApplicationTxFn = func(_ context.Context, orgID, number string, fn func(uow.Repos, *application.Application) error) error {
		a, err := lock(orgID, number)
		if err != nil {
			return err
		}
		return fn(r, a)
	}
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinApplicationTx(ctx context.Context, orgID, number string, fn func(r uow.Repos, a *application.Application) error) error {
	if m.WithinApplicationTxFn != nil {
		return m.WithinApplicationTxFn(ctx, orgID, number, fn)
	}
	return errUnimplemented
}
func (m *UoW) Repos() uow.Repos {
	if m.ReposFn != nil {
		return m.ReposFn()
	}
	return uow.Repos{}
}
