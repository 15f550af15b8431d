package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/domain"
)

// RuleResult is the outcome of one compliance rule evaluation.
type RuleResult struct {
	Rule    string
	Status  domain.ComplianceStatus
	Message string
}

// Thresholds carries the configurable ATR-QM DTI and TRID business-day
// bounds (internal/config.ComplianceConfig), rather than hardcoding them, so
// they can be tuned per jurisdiction without a code change.
type Thresholds struct {
	ATRQMSafeHarborDTI    decimal.Decimal // e.g. 0.43
	ATRQMRebuttableMaxDTI decimal.Decimal // e.g. 0.50
	LEMaxBusinessDays     int             // TRID: Loan Estimate due within N business days of application
	CDMinBusinessDays     int             // TRID: Closing Disclosure due N business days before closing
}

// CheckECOA verifies adverse-action and co-applicant notice requirements
// are satisfiable: a denial decision must carry at least one denial reason
// (Regulation B's specific-reasons requirement), and a joint application
// must have recorded financials for every listed co-borrower before a
// decision is rendered.
func CheckECOA(decision *domain.Decision, financialsByBorrower map[string]domain.ApplicationFinancials, borrowerIDs []string) RuleResult {
	if decision != nil && decision.DecisionType == domain.DecisionDenied && len(decision.DenialReasons) == 0 {
		return RuleResult{Rule: "ecoa", Status: domain.ComplianceFail, Message: "denial recorded with no specific denial reasons (Regulation B)"}
	}

	for _, id := range borrowerIDs {
		if _, ok := financialsByBorrower[id]; !ok {
			return RuleResult{Rule: "ecoa", Status: domain.ComplianceWarning, Message: "co-borrower financials missing prior to decision"}
		}
	}

	return RuleResult{Rule: "ecoa", Status: domain.CompliancePass}
}

// AggregateDTI computes the file-level DTI spec.md §3/§4.8 defines:
// Σmonthly_debts / Σgross_monthly_income across every ApplicationFinancials
// row. Returns nil (uncomputable) when there are no rows or income sums to
// zero, rather than dividing by zero.
func AggregateDTI(rows []domain.ApplicationFinancials) *decimal.Decimal {
	totalIncome := decimal.Zero
	totalDebts := decimal.Zero
	seen := false
	for _, f := range rows {
		if f.GrossMonthlyIncome != nil {
			totalIncome = totalIncome.Add(*f.GrossMonthlyIncome)
			seen = true
		}
		if f.MonthlyDebts != nil {
			totalDebts = totalDebts.Add(*f.MonthlyDebts)
			seen = true
		}
	}
	if !seen || totalIncome.IsZero() {
		return nil
	}
	dti := totalDebts.Div(totalIncome)
	return &dti
}

// CheckATRQM applies the Ability-to-Repay / Qualified Mortgage DTI bands of
// spec.md §4.8: below the safe-harbor threshold with complete documentation
// is a safe-harbor QM; at-or-below the rebuttable-presumption ceiling with
// complete documentation is a rebuttable QM; above the ceiling always
// fails; an uncomputable DTI fails outright; an otherwise safe-harbor DTI
// with missing required documents is downgraded to a warning rather than
// passed outright.
func CheckATRQM(dti *decimal.Decimal, docsPresent bool, t Thresholds) RuleResult {
	if dti == nil {
		return RuleResult{Rule: "atr_qm", Status: domain.ComplianceFail, Message: "DTI cannot be computed"}
	}
	switch {
	case dti.GreaterThan(t.ATRQMRebuttableMaxDTI):
		return RuleResult{Rule: "atr_qm", Status: domain.ComplianceFail, Message: "DTI exceeds rebuttable-presumption ceiling"}
	case dti.LessThan(t.ATRQMSafeHarborDTI):
		if !docsPresent {
			return RuleResult{Rule: "atr_qm", Status: domain.ComplianceWarning, Message: "safe-harbor DTI but required documentation is incomplete"}
		}
		return RuleResult{Rule: "atr_qm", Status: domain.CompliancePass, Message: "within safe-harbor QM DTI threshold"}
	default:
		if !docsPresent {
			return RuleResult{Rule: "atr_qm", Status: domain.ComplianceWarning, Message: "rebuttable-presumption DTI band with incomplete documentation"}
		}
		return RuleResult{Rule: "atr_qm", Status: domain.ComplianceConditionalPass, Message: "rebuttable-presumption DTI band (rebuttable QM)"}
	}
}

// CheckTRID verifies the Loan Estimate was (or is still schedulable to be)
// delivered within LEMaxBusinessDays of application, and the Closing
// Disclosure at least CDMinBusinessDays before closing, using business-day
// (Mon-Fri, no holiday modeling) arithmetic per spec.md §4.8/§9.
func CheckTRID(applicationDate time.Time, leDeliveryDate, cdDeliveryDate, closingDate *time.Time, t Thresholds) RuleResult {
	if leDeliveryDate != nil {
		if BusinessDaysBetween(applicationDate, *leDeliveryDate) > t.LEMaxBusinessDays {
			return RuleResult{Rule: "trid", Status: domain.ComplianceFail, Message: "Loan Estimate delivered outside the required business-day window"}
		}
	}
	if cdDeliveryDate != nil && closingDate != nil {
		if BusinessDaysBetween(*cdDeliveryDate, *closingDate) < t.CDMinBusinessDays {
			return RuleResult{Rule: "trid", Status: domain.ComplianceFail, Message: "Closing Disclosure delivered with insufficient business days before closing"}
		}
	}
	if leDeliveryDate == nil {
		return RuleResult{Rule: "trid", Status: domain.ComplianceConditionalPass, Message: "Loan Estimate not yet delivered"}
	}
	return RuleResult{Rule: "trid", Status: domain.CompliancePass}
}

// BusinessDaysBetween counts the Mon-Fri days after from up to and including
// to (from itself is not counted), with no holiday calendar —
// spec.md §9 scopes holiday modeling out.
func BusinessDaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	count := 0
	d := from
	for d.Before(to) {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			count++
		}
	}
	return count
}

// Run evaluates all three rules and returns the worst-of combined status
// alongside each individual result, per spec.md §4.8's combined runner.
func Run(ecoa, atrQM, trid RuleResult) (domain.ComplianceStatus, []RuleResult) {
	worst := domain.WorstComplianceStatus(ecoa.Status, domain.WorstComplianceStatus(atrQM.Status, trid.Status))
	return worst, []RuleResult{ecoa, atrQM, trid}
}
