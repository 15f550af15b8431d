package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// HMDA PROVENANCE PRECEDENCE UNIT TESTS
// ============================================================================

func TestUpsertDemographicField_HigherPrecedenceOverwrites(t *testing.T) {
	visual := domain.MethodVisualObservation
	selfReported := domain.MethodSelfReported

	existing := "white"
	value, method, changed, resolution := UpsertDemographicField(&existing, &visual, "asian", selfReported)

	assert.True(t, changed)
	assert.Equal(t, "asian", *value)
	assert.Equal(t, selfReported, *method)
	assert.Equal(t, "overwritten", resolution)
}

func TestUpsertDemographicField_LowerPrecedenceDoesNotOverwrite(t *testing.T) {
	selfReported := domain.MethodSelfReported
	visual := domain.MethodVisualObservation

	existing := "asian"
	value, method, changed, resolution := UpsertDemographicField(&existing, &selfReported, "white", visual)

	assert.False(t, changed)
	assert.Equal(t, "asian", *value)
	assert.Equal(t, selfReported, *method)
	assert.Equal(t, "kept_existing", resolution)
}

func TestUpsertDemographicField_EqualPrecedenceKeepsExisting(t *testing.T) {
	selfReported := domain.MethodSelfReported

	existing := "asian"
	value, method, changed, resolution := UpsertDemographicField(&existing, &selfReported, "white", selfReported)

	assert.False(t, changed)
	assert.Equal(t, "asian", *value)
	assert.Equal(t, "kept_existing", resolution)
}

func TestUpsertDemographicField_IdenticalValueIsNotAConflict(t *testing.T) {
	docExtraction := domain.MethodDocumentExtraction
	selfReported := domain.MethodSelfReported

	existing := "asian"
	value, method, changed, resolution := UpsertDemographicField(&existing, &docExtraction, "asian", selfReported)

	assert.False(t, changed)
	assert.Equal(t, "asian", *value)
	assert.Equal(t, docExtraction, *method)
	assert.Empty(t, resolution)
}

func TestMergeDemographic_BumpsUpdatedAtOnlyWhenChanged(t *testing.T) {
	existing := domain.HmdaDemographic{UpdatedAt: mustDate(t, "2026-01-01")}
	now := mustDate(t, "2026-02-01")
	method := domain.MethodDocumentExtraction
	race := "black_or_african_american"

	merged, conflicts := MergeDemographic(existing, &race, &method, nil, nil, nil, nil, nil, nil, now)

	assert.Equal(t, now, merged.UpdatedAt)
	assert.Equal(t, race, *merged.Race)
	assert.Empty(t, conflicts)

	unchanged, conflicts := MergeDemographic(merged, nil, nil, nil, nil, nil, nil, nil, nil, time.Now())
	assert.Equal(t, now, unchanged.UpdatedAt, "no fields supplied means no change, UpdatedAt stays put")
	assert.Empty(t, conflicts)
}

func TestMergeDemographic_ReportsOverwrittenAndKeptExistingConflicts(t *testing.T) {
	docExtraction := domain.MethodDocumentExtraction
	selfReported := domain.MethodSelfReported
	existingRace := "asian"
	existing := domain.HmdaDemographic{Race: &existingRace, RaceMethod: &docExtraction, UpdatedAt: mustDate(t, "2026-01-01")}

	newRace := "white"
	merged, conflicts := MergeDemographic(existing, &newRace, &selfReported, nil, nil, nil, nil, nil, nil, mustDate(t, "2026-02-01"))

	assert.Equal(t, "white", *merged.Race)
	assert.Equal(t, []FieldConflict{{Field: "race", Resolution: "overwritten"}}, conflicts)

	existing2 := domain.HmdaDemographic{Race: &existingRace, RaceMethod: &selfReported, UpdatedAt: mustDate(t, "2026-01-01")}
	merged2, conflicts2 := MergeDemographic(existing2, &newRace, &docExtraction, nil, nil, nil, nil, nil, nil, mustDate(t, "2026-02-01"))

	assert.Equal(t, "asian", *merged2.Race)
	assert.Equal(t, []FieldConflict{{Field: "race", Resolution: "kept_existing"}}, conflicts2)
}
