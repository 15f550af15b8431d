package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/compliance"
	"github.com/originpoint/backend/internal/domain"
)

type hmdaCollectRequest struct {
	ApplicationID            string  `json:"application_id"`
	BorrowerID               string  `json:"borrower_id"`
	Race                     *string `json:"race"`
	RaceCollectedMethod      *string `json:"race_collected_method"`
	Ethnicity                *string `json:"ethnicity"`
	EthnicityCollectedMethod *string `json:"ethnicity_collected_method"`
	Sex                      *string `json:"sex"`
	SexCollectedMethod       *string `json:"sex_collected_method"`
	Age                      *int    `json:"age"`
	AgeCollectedMethod       *string `json:"age_collected_method"`
}

func hmdaMethodPtr(s *string) *domain.HmdaMethod {
	if s == nil {
		return nil
	}
	m := domain.HmdaMethod(*s)
	return &m
}

// handleHmdaCollect records self-reported (or observed) demographic data
// for HMDA, surfacing which submitted fields lost to an existing
// higher-precedence observation rather than silently dropping them, per
// spec.md §6.1's conflicts[] response field.
func (s *Server) handleHmdaCollect(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}

	var req hmdaCollectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	appID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"application_id": "must be a UUID"}))
		return
	}
	borrowerID, err := uuid.Parse(req.BorrowerID)
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"borrower_id": "must be a UUID"}))
		return
	}

	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), appID); svcErr != nil {
		writeError(w, svcErr)
		return
	}

	conflicts, err := s.hmda.CollectDemographics(r.Context(), appID, borrowerID,
		req.Race, hmdaMethodPtr(req.RaceCollectedMethod),
		req.Ethnicity, hmdaMethodPtr(req.EthnicityCollectedMethod),
		req.Sex, hmdaMethodPtr(req.SexCollectedMethod),
		req.Age, hmdaMethodPtr(req.AgeCollectedMethod))
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	if len(conflicts) > 0 {
		s.appendAudit(r.Context(), principal, &appID, nil, "hmda_collection", map[string]interface{}{
			"borrower_id": borrowerID.String(),
			"conflicts":   conflicts,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"conflicts": conflicts})
}

// snapshotHmdaLoanData runs on the processing→underwriting transition,
// copying the application's financials and loan metadata into
// hmda.loan_data (spec.md §4.8) and recording a hmda_loan_data_snapshot
// audit event. It never fails the stage transition it's attached to: a
// snapshot failure is logged and swallowed, matching appendAudit's own
// never-fail contract for this same reason.
func (s *Server) snapshotHmdaLoanData(ctx context.Context, principal authscope.Principal, applicationID uuid.UUID) {
	if s.hmda == nil {
		return
	}
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("hmda loan-data snapshot: load application failed", "application_id", applicationID, "error", err)
		}
		return
	}
	financials, err := s.repo.ListFinancials(ctx, applicationID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("hmda loan-data snapshot: load financials failed", "application_id", applicationID, "error", err)
		}
		return
	}

	data := domain.HmdaLoanData{
		ApplicationID:      applicationID,
		GrossMonthlyIncome: aggregateGrossIncome(financials),
		DTIRatio:           compliance.AggregateDTI(financials),
		CreditScore:        primaryCreditScore(financials),
		LoanType:           app.LoanType,
		PropertyLocation:   app.PropertyAddress,
		CapturedAt:         time.Now(),
	}

	captured, null, isUpdate, err := s.hmda.SnapshotLoanData(ctx, data)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("hmda loan-data snapshot failed", "application_id", applicationID, "error", err)
		}
		return
	}

	s.appendAudit(ctx, principal, &applicationID, nil, "hmda_loan_data_snapshot", map[string]interface{}{
		"captured_fields": captured,
		"null_fields":     null,
		"is_update":       isUpdate,
	})
}

// aggregateGrossIncome sums gross_monthly_income across all financials rows
// for the application, mirroring compliance.AggregateDTI's summation but
// for the raw income figure rather than a ratio.
func aggregateGrossIncome(rows []domain.ApplicationFinancials) *decimal.Decimal {
	var total decimal.Decimal
	any := false
	for _, row := range rows {
		if row.GrossMonthlyIncome != nil {
			total = total.Add(*row.GrossMonthlyIncome)
			any = true
		}
	}
	if !any {
		return nil
	}
	return &total
}

// primaryCreditScore takes the first non-nil credit score across the
// application's financials rows; ListFinancials orders by insertion so this
// is the primary borrower's score whenever one was recorded.
func primaryCreditScore(rows []domain.ApplicationFinancials) *int {
	for _, row := range rows {
		if row.CreditScore != nil {
			return row.CreditScore
		}
	}
	return nil
}
