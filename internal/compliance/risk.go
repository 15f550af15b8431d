// Package compliance implements the ECOA/ATR-QM/TRID rule engine, the HMDA
// demographic upsert, and the risk-assessment / compensating-factors view
// of spec.md §4.7/§4.8 and SPEC_FULL.md §C.
package compliance

import (
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/domain"
)

// RiskRating is a three-tier risk band: Low, Medium, High.
type RiskRating string

const (
	RiskLow    RiskRating = "Low"
	RiskMedium RiskRating = "Medium"
	RiskHigh   RiskRating = "High"
)

// RiskAssessment is the read-only, always-recomputed view exposed alongside
// an application's decision history (SPEC_FULL.md §C). Never persisted.
type RiskAssessment struct {
	DTIRating            RiskRating
	LTVRating            RiskRating
	CreditRating         RiskRating
	IncomeStabilityRating RiskRating
	AssetSufficiencyRating RiskRating
	CompensatingFactors  []string
}

var hundred = decimal.NewFromInt(100)

// AssessRisk rates an application's financials per the thresholds of
// original_source/packages/api/src/agents/risk_tools.py (testable
// property #7 in spec.md §8 pins the DTI boundaries exactly).
func AssessRisk(financials []domain.ApplicationFinancials, loanAmount, propertyValue decimal.Decimal) RiskAssessment {
	assessment := RiskAssessment{
		DTIRating:             RiskLow,
		LTVRating:              ltvRating(loanAmount, propertyValue),
		CreditRating:           RiskLow,
		IncomeStabilityRating:  RiskLow,
		AssetSufficiencyRating: RiskLow,
	}

	var (
		worstDTI      = RiskLow
		worstCredit   = RiskLow
		minCreditScore int
		haveCredit    bool
		totalAssets   = decimal.Zero
		haveAssets    = false
	)

	for _, f := range financials {
		if f.DTIRatio != nil {
			worstDTI = worseOf(worstDTI, dtiRating(*f.DTIRatio))
		}
		if f.CreditScore != nil {
			worstCredit = worseOf(worstCredit, creditRating(*f.CreditScore))
			if !haveCredit || *f.CreditScore < minCreditScore {
				minCreditScore = *f.CreditScore
				haveCredit = true
			}
		}
		if f.TotalAssets != nil {
			totalAssets = totalAssets.Add(*f.TotalAssets)
			haveAssets = true
		}
	}

	assessment.DTIRating = worstDTI
	assessment.CreditRating = worstCredit

	assetRatio := decimal.Zero
	if haveAssets && !loanAmount.IsZero() {
		assetRatio = totalAssets.Div(loanAmount).Mul(hundred)
	}
	assessment.AssetSufficiencyRating = assetSufficiencyRating(assetRatio)

	assessment.CompensatingFactors = compensatingFactors(minCreditScore, worstCredit, worstDTI, assessment.LTVRating, assetRatio)

	return assessment
}

// IncomeStabilityRating rates income stability from a borrower's
// employment status; the worst rating across all borrowers wins.
func IncomeStabilityRating(statuses []domain.EmploymentStatus) RiskRating {
	worst := RiskLow
	for _, s := range statuses {
		worst = worseOf(worst, stabilityRating(s))
	}
	return worst
}

func stabilityRating(status domain.EmploymentStatus) RiskRating {
	switch status {
	case domain.EmploymentW2, domain.EmploymentRetired:
		return RiskLow
	case domain.EmploymentSelfEmployed, domain.EmploymentOther:
		return RiskMedium
	case domain.EmploymentUnemployed:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// dtiRating: <36% Low, 36-43% Medium, >43% High.
func dtiRating(dti decimal.Decimal) RiskRating {
	pct := dti.Mul(hundred)
	switch {
	case pct.LessThan(decimal.NewFromInt(36)):
		return RiskLow
	case pct.LessThanOrEqual(decimal.NewFromInt(43)):
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ltvRating: <60% Low, 60-80% Medium, >80% High.
func ltvRating(loanAmount, propertyValue decimal.Decimal) RiskRating {
	if propertyValue.IsZero() {
		return RiskHigh
	}
	ltv := loanAmount.Div(propertyValue).Mul(hundred)
	switch {
	case ltv.LessThan(decimal.NewFromInt(60)):
		return RiskLow
	case ltv.LessThanOrEqual(decimal.NewFromInt(80)):
		return RiskMedium
	default:
		return RiskHigh
	}
}

// creditRating: >680 Low, 620-680 Medium, <620 High.
func creditRating(score int) RiskRating {
	switch {
	case score > 680:
		return RiskLow
	case score >= 620:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// assetSufficiencyRating: asset_ratio = total_assets/loan_amount*100;
// >20% Low, 10-20% Medium, <10% High.
func assetSufficiencyRating(assetRatioPct decimal.Decimal) RiskRating {
	switch {
	case assetRatioPct.GreaterThan(decimal.NewFromInt(20)):
		return RiskLow
	case assetRatioPct.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return RiskMedium
	default:
		return RiskHigh
	}
}

var ratingRank = map[RiskRating]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

func worseOf(a, b RiskRating) RiskRating {
	if ratingRank[b] > ratingRank[a] {
		return b
	}
	return a
}

// compensatingFactors surfaces the three rules from risk_tools.py. The
// first rule checks the raw worst-borrower credit score against the exact
// 740 threshold, distinct from the >680 "Low" rating bucket used elsewhere.
func compensatingFactors(minCreditScore int, creditRating, dtiRating, ltvRating RiskRating, assetRatioPct decimal.Decimal) []string {
	var factors []string
	if minCreditScore > 740 && dtiRating == RiskHigh {
		factors = append(factors, "Strong credit (>740) offsets elevated DTI")
	}
	if ltvRating == RiskLow && creditRating == RiskHigh {
		factors = append(factors, "Low LTV (<60%) offsets weak credit")
	}
	if assetRatioPct.GreaterThan(decimal.NewFromInt(50)) {
		factors = append(factors, "High reserves (>50% of loan amount)")
	}
	return factors
}
