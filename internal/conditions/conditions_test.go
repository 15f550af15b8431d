package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// CONDITION STATE MACHINE UNIT TESTS
// ============================================================================

func TestTransition_OpenToResponded(t *testing.T) {
	delta, err := Transition(TransitionInput{From: domain.ConditionOpen, To: domain.ConditionResponded})
	assert.Nil(t, err)
	assert.Equal(t, 0, delta)
}

func TestTransition_UnderReviewToClearedSucceeds(t *testing.T) {
	delta, err := Transition(TransitionInput{From: domain.ConditionUnderReview, To: domain.ConditionCleared})
	assert.Nil(t, err)
	assert.Equal(t, 0, delta)
}

func TestTransition_UnderReviewReopensToOpenIncrementsIteration(t *testing.T) {
	delta, err := Transition(TransitionInput{From: domain.ConditionUnderReview, To: domain.ConditionOpen})
	assert.Nil(t, err)
	assert.Equal(t, 1, delta)
}

func TestTransition_RejectsSkippingRespondedStage(t *testing.T) {
	_, err := Transition(TransitionInput{From: domain.ConditionOpen, To: domain.ConditionCleared})
	assert.NotNil(t, err)
	assert.Equal(t, domain.KindConflict, err.Kind)
}

func TestTransition_RejectsChangesOnTerminalCondition(t *testing.T) {
	_, err := Transition(TransitionInput{From: domain.ConditionCleared, To: domain.ConditionOpen})
	assert.NotNil(t, err)
	assert.Equal(t, domain.KindConflict, err.Kind)
}

func TestTransition_WaiveRequiresWaivableSeverity(t *testing.T) {
	_, err := Transition(TransitionInput{
		From:            domain.ConditionOpen,
		To:              domain.ConditionWaived,
		Severity:        domain.SeverityPriorToApproval,
		WaiverRationale: "approved by exception",
	})
	assert.NotNil(t, err)
	assert.Equal(t, domain.KindPrecondition, err.Kind)
}

func TestTransition_WaiveRequiresRationale(t *testing.T) {
	_, err := Transition(TransitionInput{
		From:     domain.ConditionUnderReview,
		To:       domain.ConditionWaived,
		Severity: domain.SeverityPriorToClosing,
	})
	assert.NotNil(t, err)
	assert.Equal(t, domain.KindValidation, err.Kind)
}

func TestTransition_WaiveSucceedsWithRationaleAndWaivableSeverity(t *testing.T) {
	delta, err := Transition(TransitionInput{
		From:            domain.ConditionUnderReview,
		To:              domain.ConditionWaived,
		Severity:        domain.SeverityPriorToFunding,
		WaiverRationale: "compensating factors documented",
	})
	assert.Nil(t, err)
	assert.Equal(t, 0, delta)
}

func TestAllConditionsTerminal(t *testing.T) {
	assert.True(t, AllConditionsTerminal([]domain.ConditionStatus{domain.ConditionCleared, domain.ConditionWaived}))
	assert.False(t, AllConditionsTerminal([]domain.ConditionStatus{domain.ConditionCleared, domain.ConditionOpen}))
}

func TestHasBlockingEscalation(t *testing.T) {
	assert.True(t, HasBlockingEscalation([]domain.ConditionStatus{domain.ConditionEscalated}))
	assert.False(t, HasBlockingEscalation([]domain.ConditionStatus{domain.ConditionCleared}))
}
