package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesOnCodeAcrossCopies(t *testing.T) {
	sentinel := Conflict("duplicate_mandate", "mandate already exists")
	withMeta := sentinel.WithMeta(map[string]any{"mandate_id": "M-1"})
	wrapped := fmt.Errorf("register: %w", withMeta)

	if !errors.Is(wrapped, sentinel) {
		t.Fatalf("errors.Is should match sentinel through WithMeta + fmt wrap")
	}
	if errors.Is(wrapped, Conflict("other", "x")) {
		t.Fatalf("different code must not match")
	}
	if sentinel.Meta != nil {
		t.Fatalf("WithMeta must not mutate the sentinel: %+v", sentinel.Meta)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("x", "bad"), KindValidation},
		{fmt.Errorf("ctx: %w", Expired("token_expired", "expired")), KindExpired},
		{errors.New("plain"), KindInternal},
		{nil, KindInternal},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Fatalf("KindOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestWrapKeepsCauseAndMessage(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	e := Provider("provider_unavailable", "verification provider unavailable").Wrap(cause)
	if !errors.Is(e, cause) {
		t.Fatalf("cause not reachable via Unwrap")
	}
	if got, ok := As(e); !ok || got.Message != "verification provider unavailable" {
		t.Fatalf("As: %+v %v", got, ok)
	}
	if e.Error() != "verification provider unavailable: dial tcp: refused" {
		t.Fatalf("Error() = %q", e.Error())
	}
}

func TestMsgOverridesMessageOnly(t *testing.T) {
	base := State("invalid_transition", "transition not allowed")
	e := base.Msg("cannot move from %s to %s", "lead", "sanctioned")
	if e.Code != base.Code || e.Kind != base.Kind {
		t.Fatalf("Msg changed identity: %+v", e)
	}
	if e.Message != "cannot move from lead to sanctioned" {
		t.Fatalf("Message = %q", e.Message)
	}
}
