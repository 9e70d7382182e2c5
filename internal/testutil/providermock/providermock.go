// Package providermock holds function-backed fakes for the external partner
// ports. Unset functions return errUnimplemented so a test notices an
// unexpected provider call.
package providermock

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/EcrTech/FL-sub005/internal/domain/collection"
	"github.com/EcrTech/FL-sub005/internal/domain/esign"
	"github.com/EcrTech/FL-sub005/internal/domain/mandate"
	"github.com/EcrTech/FL-sub005/internal/domain/verification"
)

var errUnimplemented = errors.New("providermock: method not implemented")

var (
	_ verification.Adapter   = (*Verifier)(nil)
	_ esign.Provider         = (*ESign)(nil)
	_ mandate.Provider       = (*NACH)(nil)
	_ collection.UPIProvider = (*UPI)(nil)
)

type Verifier struct {
	Kind     verification.Type
	VerifyFn func(ctx context.Context, req verification.Request) (verification.Result, error)
	Calls    atomic.Int32
}

func (m *Verifier) Type() verification.Type { return m.Kind }

func (m *Verifier) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	m.Calls.Add(1)
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, req)
	}
	return verification.Result{}, errUnimplemented
}

type ESign struct {
	SendOTPFn   func(ctx context.Context, in esign.OTPSession) (string, error)
	VerifyOTPFn func(ctx context.Context, providerRef, otp string) (bool, error)
}

func (m *ESign) SendOTP(ctx context.Context, in esign.OTPSession) (string, error) {
	if m.SendOTPFn != nil {
		return m.SendOTPFn(ctx, in)
	}
	return "", errUnimplemented
}

func (m *ESign) VerifyOTP(ctx context.Context, providerRef, otp string) (bool, error) {
	if m.VerifyOTPFn != nil {
		return m.VerifyOTPFn(ctx, providerRef, otp)
	}
	return false, errUnimplemented
}

type NACH struct {
	RegisterFn func(ctx context.Context, in mandate.RegisterInput) (mandate.StatusResult, error)
	StatusFn   func(ctx context.Context, providerRef string) (mandate.StatusResult, error)
	DebitFn    func(ctx context.Context, in mandate.DebitInput) (mandate.DebitResult, error)
	CancelFn   func(ctx context.Context, providerRef string) error
}

func (m *NACH) Register(ctx context.Context, in mandate.RegisterInput) (mandate.StatusResult, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, in)
	}
	return mandate.StatusResult{}, errUnimplemented
}

func (m *NACH) Status(ctx context.Context, providerRef string) (mandate.StatusResult, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx, providerRef)
	}
	return mandate.StatusResult{}, errUnimplemented
}

func (m *NACH) Debit(ctx context.Context, in mandate.DebitInput) (mandate.DebitResult, error) {
	if m.DebitFn != nil {
		return m.DebitFn(ctx, in)
	}
	return mandate.DebitResult{}, errUnimplemented
}

func (m *NACH) Cancel(ctx context.Context, providerRef string) error {
	if m.CancelFn != nil {
		return m.CancelFn(ctx, providerRef)
	}
	return errUnimplemented
}

type UPI struct {
	CreateCollectionFn func(ctx context.Context, in collection.CollectInput) (collection.CollectResult, error)
	StatusFn           func(ctx context.Context, clientRef string) (collection.StatusResult, error)
	StatusCalls        atomic.Int32
}

func (m *UPI) CreateCollection(ctx context.Context, in collection.CollectInput) (collection.CollectResult, error) {
	if m.CreateCollectionFn != nil {
		return m.CreateCollectionFn(ctx, in)
	}
	return collection.CollectResult{}, errUnimplemented
}

func (m *UPI) Status(ctx context.Context, clientRef string) (collection.StatusResult, error) {
	m.StatusCalls.Add(1)
	if m.StatusFn != nil {
		return m.StatusFn(ctx, clientRef)
	}
	return collection.StatusResult{}, errUnimplemented
}
