package compliance

import (
	"strconv"
	"time"

	"github.com/originpoint/backend/internal/domain"
)

// FieldConflict reports how one demographic field was resolved when a new
// observation collided with a differing value already on file, per
// spec.md §4.8/§6.1's conflicts[] response shape.
type FieldConflict struct {
	Field      string `json:"field"`
	Resolution string `json:"resolution"` // "overwritten" | "kept_existing"
}

// UpsertDemographicField applies spec.md §4.8's provenance precedence rule
// for a single field. A value identical to what's already on file (or
// arriving with nothing on file to compare against) is adopted with no
// conflict — this is what makes collecting the same observation twice
// idempotent. A differing value from a strictly higher-precedence method
// overwrites ("overwritten"); a differing value from an equal-or-lower
// precedence method is kept as-is ("kept_existing").
// visual_observation(0) < document_extraction(1) < self_reported(2).
func UpsertDemographicField(currentValue *string, currentMethod *domain.HmdaMethod, newValue string, newMethod domain.HmdaMethod) (value *string, method *domain.HmdaMethod, changed bool, resolution string) {
	if currentMethod == nil || currentValue == nil {
		return &newValue, &newMethod, true, ""
	}
	if *currentValue == newValue {
		return currentValue, currentMethod, false, ""
	}
	if domain.HmdaPrecedence(newMethod) > domain.HmdaPrecedence(*currentMethod) {
		return &newValue, &newMethod, true, "overwritten"
	}
	return currentValue, currentMethod, false, "kept_existing"
}

// MergeDemographic applies UpsertDemographicField across all four
// HMDA-protected fields, bumps UpdatedAt if anything changed, and collects
// every field's conflict resolution (if any) for the caller to report.
func MergeDemographic(existing domain.HmdaDemographic, race *string, raceMethod *domain.HmdaMethod, ethnicity *string, ethnicityMethod *domain.HmdaMethod, sex *string, sexMethod *domain.HmdaMethod, age *int, ageMethod *domain.HmdaMethod, now time.Time) (domain.HmdaDemographic, []FieldConflict) {
	merged := existing
	anyChanged := false
	var conflicts []FieldConflict

	if race != nil && raceMethod != nil {
		v, m, changed, resolution := UpsertDemographicField(existing.Race, existing.RaceMethod, *race, *raceMethod)
		merged.Race, merged.RaceMethod = v, m
		anyChanged = anyChanged || changed
		if resolution != "" {
			conflicts = append(conflicts, FieldConflict{Field: "race", Resolution: resolution})
		}
	}
	if ethnicity != nil && ethnicityMethod != nil {
		v, m, changed, resolution := UpsertDemographicField(existing.Ethnicity, existing.EthnicityMethod, *ethnicity, *ethnicityMethod)
		merged.Ethnicity, merged.EthnicityMethod = v, m
		anyChanged = anyChanged || changed
		if resolution != "" {
			conflicts = append(conflicts, FieldConflict{Field: "ethnicity", Resolution: resolution})
		}
	}
	if sex != nil && sexMethod != nil {
		v, m, changed, resolution := UpsertDemographicField(existing.Sex, existing.SexMethod, *sex, *sexMethod)
		merged.Sex, merged.SexMethod = v, m
		anyChanged = anyChanged || changed
		if resolution != "" {
			conflicts = append(conflicts, FieldConflict{Field: "sex", Resolution: resolution})
		}
	}
	if age != nil && ageMethod != nil {
		var current *string
		if existing.Age != nil {
			s := strconv.Itoa(*existing.Age)
			current = &s
		}
		_, m, changed, resolution := UpsertDemographicField(current, existing.AgeMethod, strconv.Itoa(*age), *ageMethod)
		if changed {
			merged.Age = age
			merged.AgeMethod = m
		}
		anyChanged = anyChanged || changed
		if resolution != "" {
			conflicts = append(conflicts, FieldConflict{Field: "age", Resolution: resolution})
		}
	}

	if anyChanged {
		merged.UpdatedAt = now
	}
	return merged, conflicts
}
