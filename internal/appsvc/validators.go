// Package appsvc implements the application lifecycle service of spec.md
// §4.4: intake validation, stage transitions, decision recording, risk-view
// exposure, and demo-data seeding.
package appsvc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/domain"
)

var ssnDigitsRe = regexp.MustCompile(`^\d{9}$`)

// ValidateSSN accepts a dashed or digit-only 9-digit SSN, normalizes to the
// dashed form, and rejects all-zero or sequential (123-45-6789) SSNs.
// Mirrors original_source/packages/api/tests/test_intake_validation.py.
func ValidateSSN(raw string) (string, error) {
	digits := strings.ReplaceAll(raw, "-", "")
	digits = strings.TrimSpace(digits)

	if !ssnDigitsRe.MatchString(digits) {
		return "", fmt.Errorf("SSN must be 9 digits")
	}
	if digits == "000000000" {
		return "", fmt.Errorf("SSN cannot be all zeros")
	}
	if digits == "123456789" {
		return "", fmt.Errorf("SSN cannot be a sequential placeholder value")
	}

	normalized := fmt.Sprintf("%s-%s-%s", digits[0:3], digits[3:5], digits[5:9])
	return normalized, nil
}

var dobLayouts = []string{"2006-01-02", "01/02/2006"}

// ValidateDOB accepts YYYY-MM-DD or MM/DD/YYYY, normalizes to YYYY-MM-DD,
// and rejects anyone under 18.
func ValidateDOB(raw string, now time.Time) (string, error) {
	var parsed time.Time
	var err error
	for _, layout := range dobLayouts {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("date of birth could not be parsed")
	}

	age := now.Year() - parsed.Year()
	if now.Month() < parsed.Month() || (now.Month() == parsed.Month() && now.Day() < parsed.Day()) {
		age--
	}
	if age < 18 {
		return "", fmt.Errorf("applicant must be at least 18 years old")
	}

	return parsed.Format("2006-01-02"), nil
}

// ValidateEmail lowercases and rejects a missing "@".
func ValidateEmail(raw string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(normalized, "@") {
		return "", fmt.Errorf("email must contain @")
	}
	return normalized, nil
}

func parseCurrency(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("could not parse amount")
	}
	return d, nil
}

// ValidateIncome strips "$"/"," and rejects negative or unusually high
// values (a guard against fat-fingered intake, not a real income cap).
func ValidateIncome(raw string) (string, error) {
	d, err := parseCurrency(raw)
	if err != nil {
		return "", err
	}
	if d.IsNegative() {
		return "", fmt.Errorf("income cannot be negative")
	}
	if d.GreaterThan(decimal.NewFromInt(10_000_000)) {
		return "", fmt.Errorf("income value is unusually high, please verify")
	}
	return d.StringFixed(2), nil
}

// ValidateLoanAmount strips "$"/"," and rejects zero or over-max values.
func ValidateLoanAmount(raw string) (string, error) {
	d, err := parseCurrency(raw)
	if err != nil {
		return "", err
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("loan amount must be greater than zero")
	}
	if d.GreaterThan(decimal.NewFromInt(50_000_000)) {
		return "", fmt.Errorf("loan amount exceeds the maximum supported value")
	}
	return d.StringFixed(2), nil
}

// ValidatePropertyValue strips "$"/"," and rejects negative values.
func ValidatePropertyValue(raw string) (string, error) {
	d, err := parseCurrency(raw)
	if err != nil {
		return "", err
	}
	if d.IsNegative() {
		return "", fmt.Errorf("property value cannot be negative")
	}
	return d.StringFixed(2), nil
}

// ValidateCreditScore requires an integer 300-850.
func ValidateCreditScore(raw string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("credit score must be numeric")
	}
	if score < 300 || score > 850 {
		return 0, fmt.Errorf("credit score must be between 300 and 850")
	}
	return score, nil
}

// ValidateLoanType resolves against the canonical enum plus aliases.
func ValidateLoanType(raw string) (domain.LoanType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if lt, ok := domain.LoanTypeAliases[key]; ok {
		return lt, nil
	}
	return "", fmt.Errorf("not a valid loan type")
}

// ValidateEmploymentStatus resolves against the canonical enum plus aliases.
func ValidateEmploymentStatus(raw string) (domain.EmploymentStatus, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if es, ok := domain.EmploymentStatusAliases[key]; ok {
		return es, nil
	}
	return "", fmt.Errorf("not a valid employment status")
}

// ValidateField dispatches by field name for the generic intake form
// handler; unknown field names pass the value through unchanged, matching
// original_source's validate_field dispatcher.
func ValidateField(fieldName, value string, now time.Time) (string, error) {
	switch fieldName {
	case "ssn":
		return ValidateSSN(value)
	case "dob":
		return ValidateDOB(value, now)
	case "email":
		return ValidateEmail(value)
	case "income", "gross_monthly_income":
		return ValidateIncome(value)
	case "loan_amount":
		return ValidateLoanAmount(value)
	case "property_value":
		return ValidatePropertyValue(value)
	case "credit_score":
		score, err := ValidateCreditScore(value)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(score), nil
	case "loan_type":
		lt, err := ValidateLoanType(value)
		if err != nil {
			return "", err
		}
		return string(lt), nil
	case "employment_status":
		es, err := ValidateEmploymentStatus(value)
		if err != nil {
			return "", err
		}
		return string(es), nil
	default:
		return value, nil
	}
}

// ValidateIntakeForm validates an entire intake submission at once,
// returning a single domain.ServiceError carrying one message per invalid
// field rather than failing fast on the first bad value — an applicant
// correcting their form wants every error, not one at a time.
func ValidateIntakeForm(fields map[string]string, now time.Time) (map[string]string, *domain.ServiceError) {
	normalized := make(map[string]string, len(fields))
	fieldErrors := make(map[string]string)

	for name, raw := range fields {
		value, err := ValidateField(name, raw, now)
		if err != nil {
			fieldErrors[name] = err.Error()
			continue
		}
		normalized[name] = value
	}

	if len(fieldErrors) > 0 {
		return nil, domain.NewValidationError(fieldErrors)
	}
	return normalized, nil
}
