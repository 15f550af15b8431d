package compliance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// COMPLIANCE RULE UNIT TESTS
// ============================================================================

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func defaultThresholds() Thresholds {
	return Thresholds{
		ATRQMSafeHarborDTI:    decimal.RequireFromString("0.43"),
		ATRQMRebuttableMaxDTI: decimal.RequireFromString("0.50"),
		LEMaxBusinessDays:     3,
		CDMinBusinessDays:     3,
	}
}

func dtiPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCheckATRQM_SafeHarbor(t *testing.T) {
	result := CheckATRQM(dtiPtr("0.40"), true, defaultThresholds())
	assert.Equal(t, domain.CompliancePass, result.Status)
}

func TestCheckATRQM_SafeHarborWithMissingDocsWarns(t *testing.T) {
	result := CheckATRQM(dtiPtr("0.40"), false, defaultThresholds())
	assert.Equal(t, domain.ComplianceWarning, result.Status)
}

func TestCheckATRQM_RebuttableWithDocsIsConditionalPass(t *testing.T) {
	result := CheckATRQM(dtiPtr("0.47"), true, defaultThresholds())
	assert.Equal(t, domain.ComplianceConditionalPass, result.Status)
}

func TestCheckATRQM_RebuttableWithoutDocsWarns(t *testing.T) {
	result := CheckATRQM(dtiPtr("0.47"), false, defaultThresholds())
	assert.Equal(t, domain.ComplianceWarning, result.Status)
}

func TestCheckATRQM_AboveCeiling(t *testing.T) {
	result := CheckATRQM(dtiPtr("0.55"), true, defaultThresholds())
	assert.Equal(t, domain.ComplianceFail, result.Status)
}

func TestCheckATRQM_UncomputableFails(t *testing.T) {
	result := CheckATRQM(nil, true, defaultThresholds())
	assert.Equal(t, domain.ComplianceFail, result.Status)
}

func TestAggregateDTI_SumsAcrossRows(t *testing.T) {
	income := decimal.RequireFromString("10000")
	debts := decimal.RequireFromString("3000")
	dti := AggregateDTI([]domain.ApplicationFinancials{{GrossMonthlyIncome: &income, MonthlyDebts: &debts}})
	require.NotNil(t, dti)
	assert.True(t, dti.Equal(decimal.RequireFromString("0.3")))
}

func TestAggregateDTI_ZeroIncomeIsUncomputable(t *testing.T) {
	income := decimal.Zero
	debts := decimal.RequireFromString("3000")
	assert.Nil(t, AggregateDTI([]domain.ApplicationFinancials{{GrossMonthlyIncome: &income, MonthlyDebts: &debts}}))
	assert.Nil(t, AggregateDTI(nil))
}

func TestCheckECOA_DenialRequiresReasons(t *testing.T) {
	decision := &domain.Decision{DecisionType: domain.DecisionDenied}
	result := CheckECOA(decision, map[string]domain.ApplicationFinancials{}, nil)
	assert.Equal(t, domain.ComplianceFail, result.Status)
}

func TestCheckECOA_DenialWithReasonsPasses(t *testing.T) {
	decision := &domain.Decision{DecisionType: domain.DecisionDenied, DenialReasons: []string{"insufficient income"}}
	result := CheckECOA(decision, map[string]domain.ApplicationFinancials{}, nil)
	assert.Equal(t, domain.CompliancePass, result.Status)
}

func TestCheckTRID_LEOutsideWindowFails(t *testing.T) {
	applicationDate := mustDate(t, "2026-01-02")
	leDate := mustDate(t, "2026-01-09") // more than 3 business days later
	result := CheckTRID(applicationDate, &leDate, nil, nil, defaultThresholds())
	assert.Equal(t, domain.ComplianceFail, result.Status)
}

func TestRun_WorstOfWins(t *testing.T) {
	ecoa := RuleResult{Status: domain.CompliancePass}
	atrQM := RuleResult{Status: domain.ComplianceWarning}
	trid := RuleResult{Status: domain.ComplianceFail}

	worst, _ := Run(ecoa, atrQM, trid)
	assert.Equal(t, domain.ComplianceFail, worst)
}
