// Package apperr is the error taxonomy shared by every usecase. Callers see a
// short message and a stable code; wrapped causes stay server side.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindProvider      Kind = "provider"
	KindExpired       Kind = "expired"
	KindConflict      Kind = "conflict"
	KindState         Kind = "state"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Meta    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinels survive WithMeta/Wrap copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMeta returns a copy carrying extra fields for the caller.
func (e *Error) WithMeta(kv map[string]any) *Error {
	cp := *e
	cp.Meta = make(map[string]any, len(e.Meta)+len(kv))
	for k, v := range e.Meta {
		cp.Meta[k] = v
	}
	for k, v := range kv {
		cp.Meta[k] = v
	}
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Msg returns a copy of e with a more specific message.
func (e *Error) Msg(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(code, msg string) *Error    { return New(KindValidation, code, msg) }
func Authorization(code, msg string) *Error { return New(KindAuthorization, code, msg) }
func NotFound(code, msg string) *Error      { return New(KindNotFound, code, msg) }
func Provider(code, msg string) *Error      { return New(KindProvider, code, msg) }
func Expired(code, msg string) *Error       { return New(KindExpired, code, msg) }
func Conflict(code, msg string) *Error      { return New(KindConflict, code, msg) }
func State(code, msg string) *Error         { return New(KindState, code, msg) }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As unwraps the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Shared sentinels.
var (
	ErrForbidden   = Authorization("forbidden", "not allowed")
	ErrOrgBoundary = Authorization("org_boundary", "record belongs to another organization")
	ErrInvalid     = Validation("invalid_input", "invalid input")
)
