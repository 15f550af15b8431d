package documents

import "github.com/originpoint/backend/internal/llm"

// hmdaFieldNames are the extraction field names that must never land in the
// lending-side document_extractions table; they are routed to
// hmda.demographics instead (spec.md §3/§4.7: "race/ethnicity/sex/age
// fields routed OUT of lending DocumentExtraction into isolated
// hmda.demographics").
var hmdaFieldNames = map[string]bool{
	"race":      true,
	"ethnicity": true,
	"sex":       true,
	"age":       true,
}

// SplitExtractionFields partitions a raw extraction result into the fields
// safe to persist in document_extractions and the HMDA-protected fields
// that must go to the isolated schema instead.
func SplitExtractionFields(fields []llm.ExtractionField) (lending []llm.ExtractionField, hmda []llm.ExtractionField) {
	for _, f := range fields {
		if hmdaFieldNames[f.FieldName] {
			hmda = append(hmda, f)
		} else {
			lending = append(lending, f)
		}
	}
	return lending, hmda
}
