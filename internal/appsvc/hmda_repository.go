package appsvc

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/compliance"
	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/llm"
)

// HmdaRepository is the hmda-schema persistence layer, reached only through
// the compliance_app role connection (internal/db.Pool.Compliance) — the
// lending role has no grant on this schema at all, per spec.md §4.1's
// isolation requirement.
type HmdaRepository struct {
	db *sql.DB
}

func NewHmdaRepository(db *sql.DB) *HmdaRepository {
	return &HmdaRepository{db: db}
}

// upsert loads the existing demographic row (if any), merges in the
// submitted fields via internal/compliance's provenance-precedence rule,
// and persists the result, reporting any per-field conflict resolutions.
func (h *HmdaRepository) upsert(ctx context.Context, applicationID, borrowerID uuid.UUID,
	race *string, raceMethod *domain.HmdaMethod,
	ethnicity *string, ethnicityMethod *domain.HmdaMethod,
	sex *string, sexMethod *domain.HmdaMethod,
	age *int, ageMethod *domain.HmdaMethod,
) ([]compliance.FieldConflict, error) {
	var existing domain.HmdaDemographic
	err := h.db.QueryRowContext(ctx, `
		SELECT application_id, borrower_id, race, race_method, ethnicity, ethnicity_method, sex, sex_method, age, age_method, updated_at
		FROM hmda.demographics WHERE application_id = $1 AND borrower_id = $2`, applicationID, borrowerID).Scan(
		&existing.ApplicationID, &existing.BorrowerID, &existing.Race, &existing.RaceMethod, &existing.Ethnicity, &existing.EthnicityMethod,
		&existing.Sex, &existing.SexMethod, &existing.Age, &existing.AgeMethod, &existing.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load existing demographics: %w", err)
	}

	merged, conflicts := compliance.MergeDemographic(existing, race, raceMethod, ethnicity, ethnicityMethod, sex, sexMethod, age, ageMethod, time.Now())
	merged.ApplicationID = applicationID
	merged.BorrowerID = borrowerID

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO hmda.demographics (application_id, borrower_id, race, race_method, ethnicity, ethnicity_method, sex, sex_method, age, age_method, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (application_id, borrower_id) DO UPDATE SET
			race = EXCLUDED.race, race_method = EXCLUDED.race_method,
			ethnicity = EXCLUDED.ethnicity, ethnicity_method = EXCLUDED.ethnicity_method,
			sex = EXCLUDED.sex, sex_method = EXCLUDED.sex_method,
			age = EXCLUDED.age, age_method = EXCLUDED.age_method,
			updated_at = EXCLUDED.updated_at`,
		merged.ApplicationID, merged.BorrowerID, merged.Race, merged.RaceMethod, merged.Ethnicity, merged.EthnicityMethod,
		merged.Sex, merged.SexMethod, merged.Age, merged.AgeMethod, merged.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert hmda demographics: %w", err)
	}
	return conflicts, nil
}

// UpsertDemographicFields applies a single collection method across every
// submitted field — the shape the document-extraction worker uses, since
// every field surfaced by one extraction batch shares the same provenance.
func (h *HmdaRepository) UpsertDemographicFields(ctx context.Context, applicationID, borrowerID uuid.UUID, race, ethnicity, sex *string, age *int, method domain.HmdaMethod) error {
	_, err := h.upsert(ctx, applicationID, borrowerID, race, &method, ethnicity, &method, sex, &method, age, &method)
	return err
}

// CollectDemographics is the /hmda/collect-facing counterpart of
// UpsertDemographicFields: each field carries its own collection method
// (spec.md §6.1's `*_collected_method` request fields), and the per-field
// conflict resolution (`overwritten` or `kept_existing`) is returned for
// the caller to surface as spec.md §6.1's conflicts[].
func (h *HmdaRepository) CollectDemographics(ctx context.Context, applicationID, borrowerID uuid.UUID,
	race *string, raceMethod *domain.HmdaMethod,
	ethnicity *string, ethnicityMethod *domain.HmdaMethod,
	sex *string, sexMethod *domain.HmdaMethod,
	age *int, ageMethod *domain.HmdaMethod,
) ([]compliance.FieldConflict, error) {
	return h.upsert(ctx, applicationID, borrowerID, race, raceMethod, ethnicity, ethnicityMethod, sex, sexMethod, age, ageMethod)
}

// SaveExtractionFields maps a raw extraction result (race/ethnicity/sex/age
// field names) onto UpsertDemographicFields; it is the hmda-side half of
// documents.Store, invoked by appsvc.DocumentStore.
func (h *HmdaRepository) SaveExtractionFields(ctx context.Context, applicationID, borrowerID uuid.UUID, fields []llm.ExtractionField, method domain.HmdaMethod) error {
	var race, ethnicity, sex *string
	var age *int

	for _, f := range fields {
		value := f.FieldValue
		switch f.FieldName {
		case "race":
			race = &value
		case "ethnicity":
			ethnicity = &value
		case "sex":
			sex = &value
		case "age":
			if n, err := parseAge(value); err == nil {
				age = &n
			}
		}
	}

	return h.UpsertDemographicFields(ctx, applicationID, borrowerID, race, ethnicity, sex, age, method)
}

func parseAge(raw string) (int, error) {
	var n int
	_, err := fmt.Sscanf(raw, "%d", &n)
	return n, err
}

// SnapshotLoanData copies an application's financials and loan metadata
// into hmda.loan_data on UW submission (spec.md §4.8's "loan-data
// snapshot"), upserting on application_id. It reports which fields were
// captured (non-nil) versus null, and whether this was an insert or an
// update of an existing snapshot, so the caller can write the
// hmda_loan_data_snapshot audit event.
func (h *HmdaRepository) SnapshotLoanData(ctx context.Context, data domain.HmdaLoanData) (capturedFields, nullFields []string, isUpdate bool, err error) {
	var exists bool
	if err := h.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM hmda.loan_data WHERE application_id = $1)`, data.ApplicationID).Scan(&exists); err != nil {
		return nil, nil, false, fmt.Errorf("check existing loan_data: %w", err)
	}

	fields := []struct {
		name    string
		present bool
	}{
		{"gross_monthly_income", data.GrossMonthlyIncome != nil},
		{"dti_ratio", data.DTIRatio != nil},
		{"credit_score", data.CreditScore != nil},
		{"loan_type", data.LoanType != nil},
		{"loan_purpose", data.LoanPurpose != nil},
		{"property_location", data.PropertyLocation != nil},
		{"interest_rate", data.InterestRate != nil},
		{"total_fees", data.TotalFees != nil},
	}
	for _, f := range fields {
		if f.present {
			capturedFields = append(capturedFields, f.name)
		} else {
			nullFields = append(nullFields, f.name)
		}
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO hmda.loan_data
			(application_id, gross_monthly_income, dti_ratio, credit_score, loan_type, loan_purpose, property_location, interest_rate, total_fees, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (application_id) DO UPDATE SET
			gross_monthly_income = EXCLUDED.gross_monthly_income,
			dti_ratio            = EXCLUDED.dti_ratio,
			credit_score         = EXCLUDED.credit_score,
			loan_type            = EXCLUDED.loan_type,
			loan_purpose         = EXCLUDED.loan_purpose,
			property_location    = EXCLUDED.property_location,
			interest_rate        = EXCLUDED.interest_rate,
			total_fees           = EXCLUDED.total_fees,
			captured_at          = EXCLUDED.captured_at`,
		data.ApplicationID, data.GrossMonthlyIncome, data.DTIRatio, data.CreditScore, data.LoanType, data.LoanPurpose,
		data.PropertyLocation, data.InterestRate, data.TotalFees, data.CapturedAt)
	if err != nil {
		return nil, nil, false, fmt.Errorf("upsert hmda loan_data: %w", err)
	}
	return capturedFields, nullFields, exists, nil
}
