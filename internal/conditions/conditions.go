// Package conditions implements the underwriting condition lifecycle of
// spec.md §4.5: a small state machine plus the waiver/escalation rules
// that guard its terminal transitions.
package conditions

import (
	"github.com/originpoint/backend/internal/domain"
)

// allowedTransitions enumerates every (from -> to) pair the condition
// state machine permits. A condition cycles open -> responded ->
// under_review, and from under_review either clears, reopens (borrower
// response was insufficient), or escalates; waiving is only reachable
// from open or under_review, and only for a waivable severity.
var allowedTransitions = map[domain.ConditionStatus]map[domain.ConditionStatus]bool{
	domain.ConditionOpen: {
		domain.ConditionResponded: true,
		domain.ConditionWaived:    true,
		domain.ConditionEscalated: true,
	},
	domain.ConditionResponded: {
		domain.ConditionUnderReview: true,
		domain.ConditionEscalated:   true,
	},
	domain.ConditionUnderReview: {
		domain.ConditionCleared:   true,
		domain.ConditionOpen:      true,
		domain.ConditionWaived:    true,
		domain.ConditionEscalated: true,
	},
}

// CanTransition reports whether moving a condition from 'from' to 'to' is
// a legal state-machine transition on its own terms (severity/terminal
// checks happen in Transition).
func CanTransition(from, to domain.ConditionStatus) bool {
	return allowedTransitions[from][to]
}

// TransitionInput carries everything a transition attempt needs beyond the
// from/to pair, so waiver and reopen invariants can be checked in one
// place.
type TransitionInput struct {
	From            domain.ConditionStatus
	To              domain.ConditionStatus
	Severity        domain.ConditionSeverity
	WaiverRationale string
}

// Transition validates a requested condition-status change and returns the
// iteration-count delta to apply (+1 when a condition reopens from
// under_review back to open, 0 otherwise), or a domain.ServiceError when
// the transition is illegal.
func Transition(in TransitionInput) (iterationDelta int, err *domain.ServiceError) {
	if in.From.Terminal() {
		return 0, domain.NewConflictError("condition " + string(in.From) + " is terminal and cannot change state")
	}
	if !CanTransition(in.From, in.To) {
		return 0, domain.NewConflictError("cannot transition condition from " + string(in.From) + " to " + string(in.To))
	}

	if in.To == domain.ConditionWaived {
		if !domain.WaivableSeverities[in.Severity] {
			return 0, domain.NewPreconditionError("only prior_to_closing or prior_to_funding conditions may be waived")
		}
		if in.WaiverRationale == "" {
			return 0, domain.NewValidationError(map[string]string{"waiver_rationale": "a waiver rationale is required"})
		}
	}

	if in.From == domain.ConditionUnderReview && in.To == domain.ConditionOpen {
		return 1, nil
	}
	return 0, nil
}

// AllConditionsTerminal reports whether every condition in the set has
// reached cleared/waived/escalated — the gate spec.md §4.4 requires before
// an application may leave conditional_approval for clear_to_close.
func AllConditionsTerminal(statuses []domain.ConditionStatus) bool {
	for _, s := range statuses {
		if !s.Terminal() {
			return false
		}
	}
	return true
}

// HasBlockingEscalation reports whether any condition has escalated —
// escalation is terminal but, unlike cleared/waived, does not satisfy the
// "all conditions resolved" gate.
func HasBlockingEscalation(statuses []domain.ConditionStatus) bool {
	for _, s := range statuses {
		if s == domain.ConditionEscalated {
			return true
		}
	}
	return false
}
