package appsvc

import (
	"github.com/originpoint/backend/internal/domain"
)

// allowedStageTransitions enumerates every (from -> to) pair spec.md §4.4
// permits, reproduced edge-for-edge from its stage table: underwriting may
// skip conditional_approval straight to clear_to_close when a decision
// finds no outstanding conditions, conditional_approval may fall back to
// underwriting, and denial is only reachable from the three
// underwriting-adjacent stages, not from
// inquiry/prequalification/application/processing.
var allowedStageTransitions = buildTransitions()

func buildTransitions() map[domain.ApplicationStage]map[domain.ApplicationStage]bool {
	m := make(map[domain.ApplicationStage]map[domain.ApplicationStage]bool)
	add := func(from domain.ApplicationStage, tos ...domain.ApplicationStage) {
		if m[from] == nil {
			m[from] = make(map[domain.ApplicationStage]bool)
		}
		for _, to := range tos {
			m[from][to] = true
		}
	}

	add(domain.StageInquiry, domain.StagePrequalification, domain.StageApplication, domain.StageWithdrawn)
	add(domain.StagePrequalification, domain.StageApplication, domain.StageWithdrawn)
	add(domain.StageApplication, domain.StageProcessing, domain.StageWithdrawn)
	add(domain.StageProcessing, domain.StageUnderwriting, domain.StageApplication, domain.StageWithdrawn)
	add(domain.StageUnderwriting, domain.StageConditionalApproval, domain.StageClearToClose, domain.StageDenied)
	add(domain.StageConditionalApproval, domain.StageClearToClose, domain.StageUnderwriting, domain.StageDenied)
	add(domain.StageClearToClose, domain.StageClosed, domain.StageUnderwriting, domain.StageDenied)

	return m
}

// CanTransitionStage reports whether moving an application from 'from' to
// 'to' is a legal stage transition.
func CanTransitionStage(from, to domain.ApplicationStage) bool {
	if from.Terminal() {
		return false
	}
	return allowedStageTransitions[from][to]
}

// TransitionStage validates and performs the stage change, returning a
// domain.ServiceError (KindConflict) when the transition is not allowed.
func TransitionStage(from, to domain.ApplicationStage) (domain.ApplicationStage, *domain.ServiceError) {
	if !CanTransitionStage(from, to) {
		return from, domain.NewConflictError("cannot transition application from " + string(from) + " to " + string(to))
	}
	return to, nil
}
