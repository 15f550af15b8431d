package documents

import "github.com/originpoint/backend/internal/domain"

// requirementKey indexes the completeness matrix by (loan_type,
// employment_status); either half may be the wildcard "_default".
type requirementKey struct {
	LoanType         string
	EmploymentStatus string
}

const wildcard = "_default"

// requirementMatrix lists the document types a complete application needs,
// keyed by (loan_type, employment_status) with a four-step fallback chain:
// exact match → (loan_type, _default) → (_default, employment_status) →
// (_default, _default). Declared as
// an immutable Go literal per spec.md §9, not YAML config.
var requirementMatrix = map[requirementKey][]domain.DocumentType{
	// No exact or loan-type match: fall back to the W2-employee set, per
	// spec.md §4.7/S1 — a loan file with no known employment status is
	// still assumed salaried until document extraction says otherwise.
	{LoanType: wildcard, EmploymentStatus: wildcard}: {
		domain.DocW2, domain.DocPayStub, domain.DocBankStatement, domain.DocID,
	},
	{LoanType: string(domain.LoanFHA), EmploymentStatus: wildcard}: {
		domain.DocID, domain.DocBankStatement, domain.DocPropertyAppraisal, domain.DocInsurance,
	},
	{LoanType: wildcard, EmploymentStatus: string(domain.EmploymentW2)}: {
		domain.DocID, domain.DocBankStatement, domain.DocW2, domain.DocPayStub,
	},
	{LoanType: wildcard, EmploymentStatus: string(domain.EmploymentSelfEmployed)}: {
		domain.DocID, domain.DocBankStatement, domain.DocTaxReturn,
	},
	{LoanType: string(domain.LoanFHA), EmploymentStatus: string(domain.EmploymentW2)}: {
		domain.DocID, domain.DocBankStatement, domain.DocPropertyAppraisal, domain.DocInsurance, domain.DocW2, domain.DocPayStub,
	},
}

// RequiredDocuments resolves the fallback chain and returns the document
// types an application of this loan type/employment status must have
// accepted before it can leave the processing stage.
func RequiredDocuments(loanType domain.LoanType, employmentStatus domain.EmploymentStatus) []domain.DocumentType {
	lt := string(loanType)
	es := string(employmentStatus)

	if docs, ok := requirementMatrix[requirementKey{LoanType: lt, EmploymentStatus: es}]; ok {
		return docs
	}
	if docs, ok := requirementMatrix[requirementKey{LoanType: lt, EmploymentStatus: wildcard}]; ok {
		return docs
	}
	if docs, ok := requirementMatrix[requirementKey{LoanType: wildcard, EmploymentStatus: es}]; ok {
		return docs
	}
	return requirementMatrix[requirementKey{LoanType: wildcard, EmploymentStatus: wildcard}]
}

// MissingDocuments returns the subset of RequiredDocuments not yet provided,
// per providedTypes (see NewestByType/Provided: present ∧ status ≠ rejected).
func MissingDocuments(loanType domain.LoanType, employmentStatus domain.EmploymentStatus, providedTypes map[domain.DocumentType]bool) []domain.DocumentType {
	var missing []domain.DocumentType
	for _, required := range RequiredDocuments(loanType, employmentStatus) {
		if !providedTypes[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

// IsComplete reports whether every required document type has been provided.
func IsComplete(loanType domain.LoanType, employmentStatus domain.EmploymentStatus, providedTypes map[domain.DocumentType]bool) bool {
	return len(MissingDocuments(loanType, employmentStatus, providedTypes)) == 0
}

// NewestByType reduces docs to the most recently created document per
// doc_type, the "newest document of this type" completeness checks
// (spec.md §4.7) reason about.
func NewestByType(docs []domain.Document) map[domain.DocumentType]domain.Document {
	newest := make(map[domain.DocumentType]domain.Document)
	for _, d := range docs {
		cur, ok := newest[d.DocType]
		if !ok || d.CreatedAt.After(cur.CreatedAt) {
			newest[d.DocType] = d
		}
	}
	return newest
}

// Provided derives the is_provided map spec.md §4.7 defines: present ∧
// status ≠ rejected, evaluated against the newest document per type.
func Provided(newest map[domain.DocumentType]domain.Document) map[domain.DocumentType]bool {
	out := make(map[domain.DocumentType]bool, len(newest))
	for docType, d := range newest {
		out[docType] = d.Status != domain.DocStatusRejected
	}
	return out
}

// Requirement is one row of a completeness report: a required doc_type and
// whether/how it has been satisfied, per spec.md §6.1's
// `requirements[].doc_type` response shape.
type Requirement struct {
	DocType      domain.DocumentType   `json:"doc_type"`
	IsProvided   bool                  `json:"is_provided"`
	Status       domain.DocumentStatus `json:"status,omitempty"`
	QualityFlags []string              `json:"quality_flags,omitempty"`
}

// Evaluate resolves the requirement matrix for (loanType, employmentStatus)
// and reports, for each required doc_type, whether the newest document of
// that type is on file and not rejected, its current status, and its quality
// flags — the full per-requirement detail spec.md §6.1 requires.
func Evaluate(loanType domain.LoanType, employmentStatus domain.EmploymentStatus, docs []domain.Document) []Requirement {
	newest := NewestByType(docs)
	required := RequiredDocuments(loanType, employmentStatus)
	out := make([]Requirement, 0, len(required))
	for _, docType := range required {
		req := Requirement{DocType: docType}
		if d, ok := newest[docType]; ok {
			req.Status = d.Status
			req.QualityFlags = d.QualityFlags
			req.IsProvided = d.Status != domain.DocStatusRejected
		}
		out = append(out, req)
	}
	return out
}
