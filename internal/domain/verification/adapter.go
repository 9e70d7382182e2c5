package verification

import (
	"context"
	"regexp"
	"strings"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
)

var (
	ErrProviderUnavailable = apperr.Provider("provider_unavailable", "verification provider unavailable, try again")
	ErrUnsupportedType     = apperr.Validation("verification_type_invalid", "unsupported verification type")
	ErrInvalidIFSC         = apperr.Validation("ifsc_invalid", "IFSC must be 11 characters: 4 letters, 0, then 6 alphanumerics")
	ErrMissingField        = apperr.Validation("verification_input_missing", "required verification input missing")
	ErrStage               = apperr.State("verification_stage", "verification is only allowed during documents, verification or assessment")
	ErrOTPSessionMissing   = apperr.State("otp_session_missing", "request an OTP before submitting one")
)

// Request is what a usecase hands an adapter. Fields carries the
// type-specific input (pan, name, aadhaar, otp, account_number, ifsc, ...).
type Request struct {
	ApplicationNumber string
	Fields            map[string]string
	// ProviderRef carries the reference from a previous step (Aadhaar OTP).
	ProviderRef string
}

func (r Request) Get(k string) string { return strings.TrimSpace(r.Fields[k]) }

// Result is the canonical shape every adapter returns.
type Result struct {
	Status      Status
	ProviderRef string
	Data        map[string]any
	// ErrorKind and Message are set on StatusFailed.
	ErrorKind string
	Message   string
}

// Adapter is implemented once per verification type. An unreachable provider
// is reported as an error wrapping ErrProviderUnavailable; an explicit
// rejection is a Result with StatusFailed and no error.
type Adapter interface {
	Type() Type
	Verify(ctx context.Context, req Request) (Result, error)
}

type Registry struct{ adapters map[Type]Adapter }

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Type]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

func (r *Registry) Get(t Type) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, ErrUnsupportedType.WithMeta(map[string]any{"type": string(t)})
	}
	return a, nil
}

var reIFSC = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

// NormalizeIFSC upper-cases and trims the code and repairs the common OCR
// slip of a letter O in the fifth position, which is always the digit zero.
func NormalizeIFSC(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 11 {
		return "", ErrInvalidIFSC
	}
	if s[4] == 'O' {
		s = s[:4] + "0" + s[5:]
	}
	if !reIFSC.MatchString(s) {
		return "", ErrInvalidIFSC
	}
	return s, nil
}
