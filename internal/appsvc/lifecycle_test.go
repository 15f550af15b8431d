package appsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// STAGE TRANSITION UNIT TESTS
// ============================================================================

func TestCanTransitionStage_AllowsNextForwardStage(t *testing.T) {
	assert.True(t, CanTransitionStage(domain.StageInquiry, domain.StagePrequalification))
	assert.True(t, CanTransitionStage(domain.StageProcessing, domain.StageUnderwriting))
}

func TestCanTransitionStage_RejectsSkippingStages(t *testing.T) {
	assert.False(t, CanTransitionStage(domain.StageInquiry, domain.StageUnderwriting))
}

func TestCanTransitionStage_AllowsProcessingBackToApplication(t *testing.T) {
	assert.True(t, CanTransitionStage(domain.StageProcessing, domain.StageApplication))
}

func TestCanTransitionStage_AllowsClearToCloseBackToUnderwriting(t *testing.T) {
	assert.True(t, CanTransitionStage(domain.StageClearToClose, domain.StageUnderwriting))
}

func TestCanTransitionStage_AllowsDenialOnlyFromUnderwritingAdjacentStages(t *testing.T) {
	assert.False(t, CanTransitionStage(domain.StageApplication, domain.StageDenied))
	assert.True(t, CanTransitionStage(domain.StageUnderwriting, domain.StageDenied))
}

func TestCanTransitionStage_RejectsTransitionsOutOfTerminalStages(t *testing.T) {
	assert.False(t, CanTransitionStage(domain.StageDenied, domain.StageApplication))
	assert.False(t, CanTransitionStage(domain.StageClosed, domain.StageUnderwriting))
}

func TestTransitionStage_ReturnsConflictErrorOnIllegalMove(t *testing.T) {
	_, err := TransitionStage(domain.StageInquiry, domain.StageClosed)
	assert.NotNil(t, err)
	assert.Equal(t, domain.KindConflict, err.Kind)
}

func TestTransitionStage_SucceedsOnLegalMove(t *testing.T) {
	next, err := TransitionStage(domain.StageApplication, domain.StageProcessing)
	assert.Nil(t, err)
	assert.Equal(t, domain.StageProcessing, next)
}
