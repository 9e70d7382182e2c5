package application

import (
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
)

var (
	ErrNotFound             = apperr.NotFound("application_not_found", "application not found")
	ErrInvalidTransition    = apperr.State("invalid_transition", "transition not allowed from current stage")
	ErrVerificationPending  = apperr.State("verification_incomplete", "pan, aadhaar and bank_account verification must succeed first")
	ErrScheduleOutstanding  = apperr.State("schedule_outstanding", "every installment must be paid before closing")
	ErrParentNotEligible    = apperr.State("parent_not_eligible", "repeat loans require a disbursed or closed parent")
	ErrDecisionAmount       = apperr.Validation("decision_amount_invalid", "approved amount must be positive and not exceed the requested amount")
	ErrDecisionReason       = apperr.Validation("decision_reason_required", "a rejection reason is required")
	ErrUnknownDecision      = apperr.Validation("decision_unknown", "decision must be approve or reject")
	ErrDisbursementAmount   = apperr.Validation("disbursement_amount_invalid", "disbursed amount must be positive and not exceed the approved amount")
	ErrAssigneeRequired     = apperr.Validation("assignee_required", "assignee is required")
	ErrPrimaryApplicant     = apperr.Validation("primary_applicant_required", "exactly one primary applicant is required")
	ErrAlreadyDisbursed     = apperr.Conflict("already_processed", "disbursement already applied")
	ErrManualTransitionOnly = apperr.State("dedicated_operation", "this stage is reached through its own operation")
)

// forward holds the linear happy path.
var forward = map[Stage]Stage{
	StageLead:         StageDocuments,
	StageDocuments:    StageVerification,
	StageVerification: StageAssessment,
	StageAssessment:   StageApproval,
	StageApproval:     StageSanctioned,
	StageSanctioned:   StageDisbursed,
	StageDisbursed:    StageClosed,
}

var rejectable = map[Stage]bool{
	StageLead:         true,
	StageDocuments:    true,
	StageVerification: true,
	StageAssessment:   true,
	StageApproval:     true,
}

var cancellable = map[Stage]bool{
	StageLead:      true,
	StageDocuments: true,
}

// CanTransition reports whether from -> to is an edge of the stage graph.
func CanTransition(from, to Stage) bool {
	switch to {
	case StageRejected:
		return rejectable[from]
	case StageCancelled:
		return cancellable[from]
	}
	next, ok := forward[from]
	return ok && next == to
}

// IsManualEdge reports edges that Advance may take. Sanction, disbursement,
// rejection and cancellation each have a dedicated operation with its own gate.
func IsManualEdge(from, to Stage) bool {
	if !CanTransition(from, to) {
		return false
	}
	switch to {
	case StageSanctioned, StageDisbursed, StageRejected, StageCancelled:
		return false
	}
	return true
}

func (s Stage) Terminal() bool {
	return s == StageRejected || s == StageCancelled || s == StageClosed
}

func (s Stage) Valid() bool {
	switch s {
	case StageLead, StageDocuments, StageVerification, StageAssessment, StageApproval,
		StageSanctioned, StageDisbursed, StageClosed, StageRejected, StageCancelled:
		return true
	}
	return false
}

// StatusFor derives the coarse status from the stage.
func StatusFor(s Stage) Status {
	switch s {
	case StageLead:
		return StatusDraft
	case StageDisbursed:
		return StatusDisbursed
	case StageClosed:
		return StatusClosed
	case StageRejected:
		return StatusRejected
	case StageCancelled:
		return StatusCancelled
	}
	return StatusInProgress
}

// TransitionError decorates ErrInvalidTransition with the attempted edge.
func TransitionError(from, to Stage) error {
	return ErrInvalidTransition.
		Msg("cannot move from %s to %s", from, to).
		WithMeta(map[string]any{"current_stage": string(from), "requested_stage": string(to)})
}
