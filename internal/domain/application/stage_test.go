package application

import (
	"errors"
	"testing"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
)

var allStages = []Stage{
	StageLead, StageDocuments, StageVerification, StageAssessment, StageApproval,
	StageSanctioned, StageDisbursed, StageClosed, StageRejected, StageCancelled,
}

func TestCanTransition_OnlyGraphEdges(t *testing.T) {
	edges := map[[2]Stage]bool{
		{StageLead, StageDocuments}:          true,
		{StageDocuments, StageVerification}:  true,
		{StageVerification, StageAssessment}: true,
		{StageAssessment, StageApproval}:     true,
		{StageApproval, StageSanctioned}:     true,
		{StageSanctioned, StageDisbursed}:    true,
		{StageDisbursed, StageClosed}:        true,
		{StageLead, StageRejected}:           true,
		{StageDocuments, StageRejected}:      true,
		{StageVerification, StageRejected}:   true,
		{StageAssessment, StageRejected}:     true,
		{StageApproval, StageRejected}:       true,
		{StageLead, StageCancelled}:          true,
		{StageDocuments, StageCancelled}:     true,
	}
	for _, from := range allStages {
		for _, to := range allStages {
			want := edges[[2]Stage{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStagesHaveNoExit(t *testing.T) {
	for _, from := range []Stage{StageRejected, StageCancelled, StageClosed} {
		if !from.Terminal() {
			t.Fatalf("%s should be terminal", from)
		}
		for _, to := range allStages {
			if CanTransition(from, to) {
				t.Fatalf("terminal %s must not reach %s", from, to)
			}
		}
	}
}

func TestIsManualEdge_ExcludesGatedStages(t *testing.T) {
	if !IsManualEdge(StageLead, StageDocuments) || !IsManualEdge(StageDisbursed, StageClosed) {
		t.Fatalf("plain forward edges must be manual")
	}
	for _, e := range [][2]Stage{
		{StageApproval, StageSanctioned},
		{StageSanctioned, StageDisbursed},
		{StageLead, StageRejected},
		{StageLead, StageCancelled},
		{StageLead, StageVerification},
	} {
		if IsManualEdge(e[0], e[1]) {
			t.Fatalf("%s -> %s must not be a manual edge", e[0], e[1])
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[Stage]Status{
		StageLead:       StatusDraft,
		StageAssessment: StatusInProgress,
		StageSanctioned: StatusInProgress,
		StageDisbursed:  StatusDisbursed,
		StageClosed:     StatusClosed,
		StageRejected:   StatusRejected,
		StageCancelled:  StatusCancelled,
	}
	for s, want := range cases {
		if got := StatusFor(s); got != want {
			t.Fatalf("StatusFor(%s) = %s, want %s", s, got, want)
		}
	}
}

func TestTransitionError_IsStateError(t *testing.T) {
	err := TransitionError(StageLead, StageSanctioned)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("not ErrInvalidTransition: %v", err)
	}
	if apperr.KindOf(err) != apperr.KindState {
		t.Fatalf("kind = %s", apperr.KindOf(err))
	}
}

func TestCopyForRepeat_DropsIdentity(t *testing.T) {
	src := Applicant{ID: 9, OrgID: "org", ApplicationID: 3, IsPrimary: true, FirstName: "Asha", PAN: "ABCDE1234F"}
	cp := src.CopyForRepeat()
	if cp.ID != 0 || cp.OrgID != "" || cp.ApplicationID != 0 || !cp.CreatedAt.IsZero() {
		t.Fatalf("identity leaked into copy: %+v", cp)
	}
	if cp.FirstName != "Asha" || cp.PAN != "ABCDE1234F" || !cp.IsPrimary {
		t.Fatalf("business fields lost: %+v", cp)
	}
}
