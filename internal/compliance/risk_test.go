package compliance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// RISK ASSESSMENT UNIT TESTS
// ============================================================================

func pDecimal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func pInt(i int) *int { return &i }

func TestDTIRating_Thresholds(t *testing.T) {
	assert.Equal(t, RiskLow, dtiRating(decimal.RequireFromString("0.35")))
	assert.Equal(t, RiskMedium, dtiRating(decimal.RequireFromString("0.36")))
	assert.Equal(t, RiskMedium, dtiRating(decimal.RequireFromString("0.43")))
	assert.Equal(t, RiskHigh, dtiRating(decimal.RequireFromString("0.44")))
}

func TestLTVRating_Thresholds(t *testing.T) {
	assert.Equal(t, RiskLow, ltvRating(decimal.NewFromInt(59), decimal.NewFromInt(100)))
	assert.Equal(t, RiskMedium, ltvRating(decimal.NewFromInt(80), decimal.NewFromInt(100)))
	assert.Equal(t, RiskHigh, ltvRating(decimal.NewFromInt(81), decimal.NewFromInt(100)))
}

func TestCreditRating_Thresholds(t *testing.T) {
	assert.Equal(t, RiskLow, creditRating(740))
	assert.Equal(t, RiskMedium, creditRating(680))
	assert.Equal(t, RiskMedium, creditRating(620))
	assert.Equal(t, RiskHigh, creditRating(619))
}

func TestAssetSufficiencyRating_Thresholds(t *testing.T) {
	assert.Equal(t, RiskLow, assetSufficiencyRating(decimal.NewFromInt(21)))
	assert.Equal(t, RiskMedium, assetSufficiencyRating(decimal.NewFromInt(15)))
	assert.Equal(t, RiskHigh, assetSufficiencyRating(decimal.NewFromInt(5)))
}

func TestAssessRisk_CompensatingFactor_StrongCreditOffsetsHighDTI(t *testing.T) {
	financials := []domain.ApplicationFinancials{
		{DTIRatio: pDecimal("0.48"), CreditScore: pInt(760), TotalAssets: pDecimal("10000")},
	}
	result := AssessRisk(financials, decimal.NewFromInt(300000), decimal.NewFromInt(400000))

	assert.Equal(t, RiskHigh, result.DTIRating)
	assert.Contains(t, result.CompensatingFactors, "Strong credit (>740) offsets elevated DTI")
}

func TestAssessRisk_CompensatingFactor_HighReserves(t *testing.T) {
	financials := []domain.ApplicationFinancials{
		{DTIRatio: pDecimal("0.30"), CreditScore: pInt(700), TotalAssets: pDecimal("200000")},
	}
	result := AssessRisk(financials, decimal.NewFromInt(300000), decimal.NewFromInt(400000))

	assert.Contains(t, result.CompensatingFactors, "High reserves (>50% of loan amount)")
}

func TestIncomeStabilityRating_WorstWins(t *testing.T) {
	rating := IncomeStabilityRating([]domain.EmploymentStatus{domain.EmploymentW2, domain.EmploymentUnemployed})
	assert.Equal(t, RiskHigh, rating)
}

func TestBusinessDaysBetween_SkipsWeekends(t *testing.T) {
	from := mustDate(t, "2026-01-02") // Friday
	to := mustDate(t, "2026-01-05")   // Monday
	assert.Equal(t, 1, BusinessDaysBetween(from, to), "only Monday should count, weekend excluded")
}
