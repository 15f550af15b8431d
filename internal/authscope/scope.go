package authscope

import (
	"fmt"

	"github.com/originpoint/backend/internal/domain"
)

// ScopeKind is one of the five data-scope predicates of spec.md §4.2/§9.
type ScopeKind string

const (
	ScopeOwnDataOnly           ScopeKind = "own_data_only"
	ScopeAssignedTo            ScopeKind = "assigned_to"
	ScopeFullPipeline          ScopeKind = "full_pipeline"
	ScopePIIMask               ScopeKind = "pii_mask"
	ScopeDocumentMetadataOnly  ScopeKind = "document_metadata_only"
)

// DataScope is resolved once per request from the Principal's role and
// composed into every repository query, following spec.md §9's
// apply_scope(query, principal) polymorphism: one function per scope kind,
// dispatched on the principal's role, rather than role checks scattered
// through handler code.
type DataScope struct {
	Kind      ScopeKind
	Principal Principal
}

// ForPrincipal resolves the scope predicate a principal's role grants.
// borrower/prospect see only applications they are a party to;
// loan_officer sees applications assigned to them; underwriter/ceo/admin
// see the full pipeline. PII masking and document-metadata-only are
// narrower views layered on top of full_pipeline for roles that need
// visibility into an application without exposure to raw SSN/DOB or
// document contents — applied by the caller at the field/response level,
// not as a row filter.
func ForPrincipal(p Principal) DataScope {
	switch p.Role {
	case domain.RoleBorrower, domain.RoleProspect:
		return DataScope{Kind: ScopeOwnDataOnly, Principal: p}
	case domain.RoleLoanOfficer:
		return DataScope{Kind: ScopeAssignedTo, Principal: p}
	case domain.RoleUnderwriter, domain.RoleCEO, domain.RoleAdmin:
		return DataScope{Kind: ScopeFullPipeline, Principal: p}
	default:
		return DataScope{Kind: ScopeOwnDataOnly, Principal: p}
	}
}

// ApplicationsPredicate returns the SQL WHERE fragment (and its bind
// argument) a repository method ANDs onto its base applications query to
// enforce this scope. full_pipeline adds no restriction: "true" with no
// argument.
func (s DataScope) ApplicationsPredicate(startArgIndex int) (clause string, args []interface{}) {
	switch s.Kind {
	case ScopeOwnDataOnly:
		return fmt.Sprintf(
			"id IN (SELECT ab.application_id FROM application_borrowers ab JOIN borrowers b ON b.id = ab.borrower_id WHERE b.external_subject = $%d)",
			startArgIndex,
		), []interface{}{s.Principal.Subject}
	case ScopeAssignedTo:
		return fmt.Sprintf("assigned_to = $%d", startArgIndex), []interface{}{s.Principal.Subject}
	default: // full_pipeline, pii_mask, document_metadata_only — row-level predicate is unrestricted
		return "true", nil
	}
}

// MasksPII reports whether field-level PII (SSN, DOB) should be redacted
// from a response under this scope.
func (s DataScope) MasksPII() bool {
	return s.Kind == ScopePIIMask
}

// DocumentMetadataOnly reports whether document responses should include
// only metadata (type, status, upload date) and omit extracted field
// values and the blob content itself.
func (s DataScope) DocumentMetadataOnly() bool {
	return s.Kind == ScopeDocumentMetadataOnly
}
