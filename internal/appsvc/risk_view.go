package appsvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/compliance"
	"github.com/originpoint/backend/internal/domain"
)

// RiskView assembles the read-only, always-recomputed risk assessment for
// an application from its financials and loan terms — never persisted,
// per compliance.RiskAssessment's doc comment.
func (r *Repository) RiskView(ctx context.Context, applicationID uuid.UUID) (*compliance.RiskAssessment, error) {
	app, err := r.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	financials, err := r.ListFinancials(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load financials: %w", err)
	}

	loanAmount, propertyValue := zeroIfNil(app.LoanAmount), zeroIfNil(app.PropertyValue)
	assessment := compliance.AssessRisk(financials, loanAmount, propertyValue)
	return &assessment, nil
}

// RecordDecision persists an underwriting decision alongside its risk
// rationale, per spec.md §4.6. The caller supplies the rule-engine output
// (via internal/compliance.Run) as contributing factors when denying.
func (r *Repository) RecordDecision(ctx context.Context, d domain.Decision) (uuid.UUID, error) {
	if d.DecisionType == domain.DecisionDenied && len(d.DenialReasons) == 0 {
		return uuid.Nil, domain.NewValidationError(map[string]string{"denial_reasons": "at least one denial reason is required"})
	}
	return r.CreateDecision(ctx, d)
}

func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
