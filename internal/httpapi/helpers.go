package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
)

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

// ceoScopes resolves the two narrower, field-level views authscope.DataScope
// offers (ScopePIIMask, ScopeDocumentMetadataOnly) for the one role spec.md
// §8 S6 requires them for: the CEO. authscope.ForPrincipal never constructs
// these kinds itself — its own doc comment assigns that decision to the
// calling layer — so httpapi resolves it here, keyed on the same Principal
// every other scope decision in this package already uses.
func ceoScopes(p authscope.Principal) (maskPII, documentMetadataOnly bool) {
	if p.Role != domain.RoleCEO {
		return false, false
	}
	pii := authscope.DataScope{Kind: authscope.ScopePIIMask, Principal: p}
	doc := authscope.DataScope{Kind: authscope.ScopeDocumentMetadataOnly, Principal: p}
	return pii.MasksPII(), doc.DocumentMetadataOnly()
}

// maskSSN keeps the last 4 digits of a dashed or digit-only SSN and
// replaces the rest, per spec.md §4.2/§8 S6: "***-**-NNNN".
func maskSSN(ssn string) string {
	digits := strings.ReplaceAll(ssn, "-", "")
	if len(digits) < 4 {
		return "***-**-" + digits
	}
	return "***-**-" + digits[len(digits)-4:]
}

// maskDOB keeps the year and replaces month/day, per spec.md §4.2/§8 S6:
// "YYYY-**-**".
func maskDOB(dob time.Time) string {
	return fmt.Sprintf("%04d-**-**", dob.Year())
}

// maskBorrowerPII applies the partial SSN/DOB masks of spec.md §4.2 to a
// copy of b, per spec.md §8 S6: a CEO may see that an application exists
// and who its borrowers are, with SSN/DOB partially redacted rather than
// withheld outright.
func maskBorrowerPII(b domain.Borrower) borrowerView {
	v := borrowerView{
		ID:        b.ID,
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Email:     b.Email,
	}
	if b.SSN != nil {
		masked := maskSSN(*b.SSN)
		v.SSN = &masked
	}
	if b.DOB != nil {
		masked := maskDOB(*b.DOB)
		v.DOB = &masked
	}
	return v
}

// borrowerView is the response shape for an embedded borrower; SSN/DOB are
// either the real values (non-CEO caller) or partially-masked strings
// (CEO caller).
type borrowerView struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	SSN       *string   `json:"ssn,omitempty"`
	DOB       *string   `json:"dob,omitempty"`
}

func fullBorrowerView(b domain.Borrower) borrowerView {
	v := borrowerView{ID: b.ID, FirstName: b.FirstName, LastName: b.LastName, Email: b.Email, SSN: b.SSN}
	if b.DOB != nil {
		dob := b.DOB.Format("2006-01-02")
		v.DOB = &dob
	}
	return v
}

// paginationParams reads the limit (default 25) and offset (default 0) query
// params behind spec.md §6.1's {data[], pagination{total, has_more}} shape;
// missing or invalid values keep the defaults. The repository layer has no
// LIMIT/OFFSET of its own for scoped application lists, so callers slice the
// full scoped result set in memory.
func paginationParams(r *http.Request) (limit, offset int) {
	limit, offset = 25, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

type pagination struct {
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}
