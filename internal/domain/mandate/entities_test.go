package mandate

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"APPROVED":   StatusActive,
		"active":     StatusActive,
		"Registered": StatusActive,
		"submitted":  StatusSubmitted,
		"INITIATED":  StatusSubmitted,
		"rejected":   StatusRejected,
		"failed":     StatusRejected,
		"canceled":   StatusCancelled,
		"":           StatusPending,
		"weird":      StatusPending,
	}
	for in, want := range cases {
		if got := NormalizeStatus(in); got != want {
			t.Fatalf("NormalizeStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStatusOpen(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSubmitted, StatusActive} {
		if !s.Open() {
			t.Fatalf("%s should be open", s)
		}
	}
	for _, s := range []Status{StatusRejected, StatusCancelled} {
		if s.Open() {
			t.Fatalf("%s should be closed", s)
		}
	}
}
