package appsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// INTAKE FIELD VALIDATION UNIT TESTS
// ============================================================================

func TestValidateSSN_NormalizesDigitsOnlyToDashed(t *testing.T) {
	out, err := ValidateSSN("123456780")
	assert.NoError(t, err)
	assert.Equal(t, "123-45-6780", out)
}

func TestValidateSSN_AcceptsAlreadyDashed(t *testing.T) {
	out, err := ValidateSSN("123-45-6780")
	assert.NoError(t, err)
	assert.Equal(t, "123-45-6780", out)
}

func TestValidateSSN_RejectsAllZeros(t *testing.T) {
	_, err := ValidateSSN("000-00-0000")
	assert.Error(t, err)
}

func TestValidateSSN_RejectsSequentialPlaceholder(t *testing.T) {
	_, err := ValidateSSN("123-45-6789")
	assert.Error(t, err)
}

func TestValidateSSN_RejectsWrongLength(t *testing.T) {
	_, err := ValidateSSN("12345")
	assert.Error(t, err)
}

func TestValidateDOB_NormalizesSlashFormat(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := ValidateDOB("01/15/1990", now)
	assert.NoError(t, err)
	assert.Equal(t, "1990-01-15", out)
}

func TestValidateDOB_RejectsUnder18(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := ValidateDOB("2015-01-02", now)
	assert.Error(t, err)
}

func TestValidateDOB_AcceptsExactly18(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := ValidateDOB("2008-01-01", now)
	assert.NoError(t, err)
	assert.Equal(t, "2008-01-01", out)
}

func TestValidateEmail_LowercasesAndRequiresAtSign(t *testing.T) {
	out, err := ValidateEmail("Jane.DOE@Example.com")
	assert.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", out)

	_, err = ValidateEmail("not-an-email")
	assert.Error(t, err)
}

func TestValidateIncome_StripsDollarSignsAndCommas(t *testing.T) {
	out, err := ValidateIncome("$6,500.00")
	assert.NoError(t, err)
	assert.Equal(t, "6500.00", out)
}

func TestValidateIncome_RejectsNegative(t *testing.T) {
	_, err := ValidateIncome("-100")
	assert.Error(t, err)
}

func TestValidateIncome_RejectsUnreasonablyHigh(t *testing.T) {
	_, err := ValidateIncome("50000000")
	assert.Error(t, err)
}

func TestValidateLoanAmount_RejectsZero(t *testing.T) {
	_, err := ValidateLoanAmount("0")
	assert.Error(t, err)
}

func TestValidateLoanAmount_AcceptsTypical(t *testing.T) {
	out, err := ValidateLoanAmount("$350,000")
	assert.NoError(t, err)
	assert.Equal(t, "350000.00", out)
}

func TestValidatePropertyValue_RejectsNegative(t *testing.T) {
	_, err := ValidatePropertyValue("-1")
	assert.Error(t, err)
}

func TestValidateCreditScore_RejectsOutOfRange(t *testing.T) {
	_, err := ValidateCreditScore("250")
	assert.Error(t, err)

	_, err = ValidateCreditScore("900")
	assert.Error(t, err)
}

func TestValidateCreditScore_AcceptsBoundaries(t *testing.T) {
	score, err := ValidateCreditScore("300")
	assert.NoError(t, err)
	assert.Equal(t, 300, score)

	score, err = ValidateCreditScore("850")
	assert.NoError(t, err)
	assert.Equal(t, 850, score)
}

func TestValidateLoanType_ResolvesAliases(t *testing.T) {
	lt, err := ValidateLoanType("Conventional")
	assert.NoError(t, err)
	assert.Equal(t, domain.LoanConventional30, lt)

	_, err = ValidateLoanType("balloon")
	assert.Error(t, err)
}

func TestValidateEmploymentStatus_ResolvesAliases(t *testing.T) {
	es, err := ValidateEmploymentStatus("1099")
	assert.NoError(t, err)
	assert.Equal(t, domain.EmploymentSelfEmployed, es)
}

func TestValidateIntakeForm_CollectsAllFieldErrorsTogether(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fields := map[string]string{
		"ssn":   "000-00-0000",
		"email": "not-an-email",
		"dob":   "2008-01-01",
	}

	normalized, err := ValidateIntakeForm(fields, now)

	assert.Nil(t, normalized)
	assert.NotNil(t, err)
	assert.Equal(t, domain.KindValidation, err.Kind)
	assert.Contains(t, err.Fields, "ssn")
	assert.Contains(t, err.Fields, "email")
	assert.NotContains(t, err.Fields, "dob")
}

func TestValidateIntakeForm_PassesThroughUnknownFields(t *testing.T) {
	now := time.Now()
	normalized, err := ValidateIntakeForm(map[string]string{"nickname": "Jay"}, now)
	assert.Nil(t, err)
	assert.Equal(t, "Jay", normalized["nickname"])
}
