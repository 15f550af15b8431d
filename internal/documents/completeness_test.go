package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/llm"
)

// ============================================================================
// COMPLETENESS MATRIX & HMDA ROUTING UNIT TESTS
// ============================================================================

func TestRequiredDocuments_ExactMatchWins(t *testing.T) {
	docs := RequiredDocuments(domain.LoanFHA, domain.EmploymentW2)
	assert.Contains(t, docs, domain.DocPropertyAppraisal)
	assert.Contains(t, docs, domain.DocW2)
}

func TestRequiredDocuments_FallsBackToLoanTypeDefault(t *testing.T) {
	docs := RequiredDocuments(domain.LoanFHA, domain.EmploymentRetired)
	assert.Contains(t, docs, domain.DocPropertyAppraisal)
}

func TestRequiredDocuments_FallsBackToGlobalDefault(t *testing.T) {
	docs := RequiredDocuments(domain.LoanVA, domain.EmploymentRetired)
	assert.Equal(t, RequiredDocuments(wildcardLoanType(), wildcardEmployment()), docs)
}

func wildcardLoanType() domain.LoanType             { return domain.LoanType(wildcard) }
func wildcardEmployment() domain.EmploymentStatus    { return domain.EmploymentStatus(wildcard) }

func TestMissingDocuments_ReportsGaps(t *testing.T) {
	accepted := map[domain.DocumentType]bool{domain.DocID: true}
	missing := MissingDocuments(domain.LoanConventional30, domain.EmploymentW2, accepted)

	assert.Contains(t, missing, domain.DocBankStatement)
	assert.NotContains(t, missing, domain.DocID)
}

func TestIsComplete_TrueWhenAllProvided(t *testing.T) {
	provided := map[domain.DocumentType]bool{
		domain.DocID:            true,
		domain.DocBankStatement: true,
		domain.DocW2:            true,
		domain.DocPayStub:       true,
	}
	assert.True(t, IsComplete(domain.LoanConventional30, domain.EmploymentRetired, provided))
}

func TestProvided_AcceptsAnyNonRejectedStatus(t *testing.T) {
	docs := []domain.Document{
		{DocType: domain.DocW2, Status: domain.DocStatusProcessingComplete, CreatedAt: time.Unix(1, 0)},
		{DocType: domain.DocID, Status: domain.DocStatusRejected, CreatedAt: time.Unix(1, 0)},
	}
	provided := Provided(NewestByType(docs))

	assert.True(t, provided[domain.DocW2])
	assert.False(t, provided[domain.DocID])
}

func TestProvided_UsesNewestDocumentPerType(t *testing.T) {
	docs := []domain.Document{
		{DocType: domain.DocID, Status: domain.DocStatusRejected, CreatedAt: time.Unix(1, 0)},
		{DocType: domain.DocID, Status: domain.DocStatusAccepted, CreatedAt: time.Unix(2, 0)},
	}
	provided := Provided(NewestByType(docs))

	assert.True(t, provided[domain.DocID])
}

func TestEvaluate_DefaultMatrixIsW2Set(t *testing.T) {
	reqs := Evaluate(domain.LoanConventional30, "", nil)

	var docTypes []domain.DocumentType
	for _, r := range reqs {
		docTypes = append(docTypes, r.DocType)
		assert.False(t, r.IsProvided)
	}
	assert.ElementsMatch(t, []domain.DocumentType{domain.DocW2, domain.DocPayStub, domain.DocBankStatement, domain.DocID}, docTypes)
}

func TestSplitExtractionFields_RoutesProtectedClassFieldsOut(t *testing.T) {
	fields := []llm.ExtractionField{
		{FieldName: "employer_name", FieldValue: "Acme Corp"},
		{FieldName: "race", FieldValue: "asian"},
		{FieldName: "sex", FieldValue: "female"},
	}

	lending, hmda := SplitExtractionFields(fields)

	assert.Len(t, lending, 1)
	assert.Equal(t, "employer_name", lending[0].FieldName)
	assert.Len(t, hmda, 2)
}
