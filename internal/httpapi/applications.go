package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/appsvc"
	"github.com/originpoint/backend/internal/compliance"
	"github.com/originpoint/backend/internal/documents"
	"github.com/originpoint/backend/internal/domain"
)

type applicationView struct {
	ID              uuid.UUID       `json:"id"`
	Stage           domain.ApplicationStage `json:"stage"`
	LoanType        *domain.LoanType `json:"loan_type,omitempty"`
	PropertyAddress *string         `json:"property_address,omitempty"`
	LoanAmount      *decimal.Decimal `json:"loan_amount,omitempty"`
	PropertyValue   *decimal.Decimal `json:"property_value,omitempty"`
	AssignedTo      *string         `json:"assigned_to,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Borrowers       []borrowerView  `json:"borrowers,omitempty"`
}

func toApplicationView(app domain.Application) applicationView {
	return applicationView{
		ID: app.ID, Stage: app.Stage, LoanType: app.LoanType, PropertyAddress: app.PropertyAddress,
		LoanAmount: app.LoanAmount, PropertyValue: app.PropertyValue, AssignedTo: app.AssignedTo,
		CreatedAt: app.CreatedAt, UpdatedAt: app.UpdatedAt,
	}
}

// applicationInScope fetches an application and confirms it is visible
// under the principal's data scope in one query, so a borrower probing
// another borrower's application ID sees a 404 (KindOutOfScope) rather than
// learning the ID exists via a 403.
func (s *Server) applicationInScope(r *http.Request, scope authscope.DataScope, id uuid.UUID) (*domain.Application, error) {
	clause, args := scope.ApplicationsPredicate(2)
	apps, err := s.repo.ListApplicationsForScope(r.Context(), fmt.Sprintf("id = $1 AND (%s)", clause), append([]interface{}{id}, args...))
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if len(apps) == 0 {
		return nil, domain.NewOutOfScopeError()
	}
	return &apps[0], nil
}

type createApplicationRequest struct {
	LoanType        *string          `json:"loan_type"`
	PropertyAddress *string          `json:"property_address"`
	LoanAmount      *decimal.Decimal `json:"loan_amount"`
	PropertyValue   *decimal.Decimal `json:"property_value"`
}

func (req createApplicationRequest) empty() bool {
	return req.LoanType == nil && req.PropertyAddress == nil && req.LoanAmount == nil && req.PropertyValue == nil
}

// handleCreateApplication decodes the optional intake fields spec.md §6.1
// accepts on POST /applications/ and echoes them straight back on the
// created Application, per §8 S1 — the body is no longer silently dropped.
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}

	var req createApplicationRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	borrowerID, err := s.repo.GetOrCreateBorrowerByExternalSubject(r.Context(), principal.Subject)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	id, err := s.repo.CreateApplication(r.Context(), borrowerID)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	if !req.empty() {
		patch := appsvc.ApplicationPatch{PropertyAddress: req.PropertyAddress, LoanAmount: req.LoanAmount, PropertyValue: req.PropertyValue}
		if req.LoanType != nil {
			lt := domain.LoanType(*req.LoanType)
			patch.LoanType = &lt
		}
		if err := s.repo.UpdateApplicationFields(r.Context(), id, patch); err != nil {
			writeError(w, err)
			return
		}

		// Supplying loan intake details completes the application step of
		// spec.md §3's intake flow, not just an inquiry — advance the stage
		// to match, per §8 S1.
		if newStage, transErr := appsvc.TransitionStage(domain.StageInquiry, domain.StageApplication); transErr == nil {
			if err := s.repo.UpdateStage(r.Context(), id, newStage); err != nil {
				writeError(w, err)
				return
			}
		}
	}

	app, err := s.repo.GetApplication(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationView(*app))
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}

	scope := authscope.ForPrincipal(principal)
	clause, args := scope.ApplicationsPredicate(1)
	apps, err := s.repo.ListApplicationsForScope(r.Context(), clause, args)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	limit, offset := paginationParams(r)
	total := len(apps)
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}
	page := apps[offset:end]

	views := make([]applicationView, 0, len(page))
	for _, app := range page {
		views = append(views, toApplicationView(app))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       views,
		"pagination": pagination{Total: total, HasMore: end < total},
	})
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"id": "must be a UUID"}))
		return
	}

	app, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), id)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	borrowers, err := s.repo.ListBorrowersForApplication(r.Context(), id)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	maskPII, _ := ceoScopes(principal)
	view := toApplicationView(*app)
	for _, b := range borrowers {
		if maskPII {
			view.Borrowers = append(view.Borrowers, maskBorrowerPII(b))
		} else {
			view.Borrowers = append(view.Borrowers, fullBorrowerView(b))
		}
	}
	writeJSON(w, http.StatusOK, view)
}

type patchApplicationRequest struct {
	LoanType        *string          `json:"loan_type"`
	PropertyAddress *string          `json:"property_address"`
	LoanAmount      *decimal.Decimal `json:"loan_amount"`
	PropertyValue   *decimal.Decimal `json:"property_value"`
	AssignedTo      *string          `json:"assigned_to"`
	Stage           *string          `json:"stage"`
}

func (req patchApplicationRequest) empty() bool {
	return req.LoanType == nil && req.PropertyAddress == nil && req.LoanAmount == nil &&
		req.PropertyValue == nil && req.AssignedTo == nil && req.Stage == nil
}

// handlePatchApplication applies sparse field updates and, when the body
// carries a "stage" key, drives the application through
// appsvc.TransitionStage — this is the only way spec.md §4.4's stage
// machine is reachable from the API, matching the original system's
// test_update_stage (PATCH {"stage": "processing"}).
func (s *Server) handlePatchApplication(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"id": "must be a UUID"}))
		return
	}

	app, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), id)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	var req patchApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.empty() {
		writeError(w, domain.NewPreconditionError("patch body must set at least one field"))
		return
	}

	if req.Stage != nil {
		to := domain.ApplicationStage(*req.Stage)
		newStage, transErr := appsvc.TransitionStage(app.Stage, to)
		if transErr != nil {
			writeError(w, transErr)
			return
		}
		if err := s.repo.UpdateStage(r.Context(), id, newStage); err != nil {
			writeError(w, err)
			return
		}
		s.appendAudit(r.Context(), principal, &id, nil, "stage_transition", map[string]interface{}{
			"from_stage": string(app.Stage),
			"to_stage":   string(newStage),
		})

		if newStage == domain.StageUnderwriting {
			s.snapshotHmdaLoanData(r.Context(), principal, id)
		}
	}

	patch := appsvc.ApplicationPatch{
		PropertyAddress: req.PropertyAddress,
		LoanAmount:      req.LoanAmount,
		PropertyValue:   req.PropertyValue,
		AssignedTo:      req.AssignedTo,
	}
	if req.LoanType != nil {
		lt := domain.LoanType(*req.LoanType)
		patch.LoanType = &lt
	}
	if patchFieldsSet(patch) {
		if err := s.repo.UpdateApplicationFields(r.Context(), id, patch); err != nil {
			writeError(w, err)
			return
		}
	}

	updated, err := s.repo.GetApplication(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationView(*updated))
}

func patchFieldsSet(p appsvc.ApplicationPatch) bool {
	return p.LoanType != nil || p.PropertyAddress != nil || p.LoanAmount != nil || p.PropertyValue != nil || p.AssignedTo != nil
}

type addBorrowerRequest struct {
	BorrowerID string `json:"borrower_id"`
	IsPrimary  bool   `json:"is_primary"`
}

func (s *Server) handleAddBorrower(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"id": "must be a UUID"}))
		return
	}
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), id); svcErr != nil {
		writeError(w, svcErr)
		return
	}
	var req addBorrowerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	borrowerID, err := uuid.Parse(req.BorrowerID)
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"borrower_id": "must be a UUID"}))
		return
	}

	linkID, err := s.repo.AddBorrowerToApplication(r.Context(), id, borrowerID, req.IsPrimary)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			writeError(w, domain.NewConflictError("borrower is already attached to this application"))
			return
		}
		writeError(w, domain.NewInternalError(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": linkID})
}

func (s *Server) handleRemoveBorrower(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	appID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"id": "must be a UUID"}))
		return
	}
	borrowerID, err := pathUUID(r, "borrower_id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"borrower_id": "must be a UUID"}))
		return
	}
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), appID); svcErr != nil {
		writeError(w, svcErr)
		return
	}

	links, err := s.repo.ListApplicationBorrowers(r.Context(), appID)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	if len(links) <= 1 {
		writeError(w, domain.NewPreconditionError("cannot remove the sole borrower on an application"))
		return
	}
	for _, l := range links {
		if l.BorrowerID == borrowerID && l.IsPrimary {
			writeError(w, domain.NewPreconditionError("cannot remove the primary borrower; reassign primary first"))
			return
		}
	}

	if err := s.repo.RemoveBorrowerFromApplication(r.Context(), appID, borrowerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"id": "must be a UUID"}))
		return
	}

	app, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), id)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}
	docs, err := s.repo.ListDocuments(r.Context(), id)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	borrowers, err := s.repo.ListBorrowersForApplication(r.Context(), id)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	var loanType domain.LoanType
	if app.LoanType != nil {
		loanType = *app.LoanType
	}
	var employmentStatus domain.EmploymentStatus
	if len(borrowers) > 0 && borrowers[0].EmploymentStatus != nil {
		employmentStatus = *borrowers[0].EmploymentStatus
	}

	requirements := documents.Evaluate(loanType, employmentStatus, docs)
	providedCount := 0
	for _, req := range requirements {
		if req.IsProvided {
			providedCount++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"required_count": len(requirements),
		"provided_count": providedCount,
		"is_complete":    providedCount == len(requirements),
		"requirements":   requirements,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"id": "must be a UUID"}))
		return
	}

	app, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), id)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}
	conditions, err := s.repo.ListConditions(r.Context(), id)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	var pendingActions []string
	for _, c := range conditions {
		if !c.Status.Terminal() {
			pendingActions = append(pendingActions, fmt.Sprintf("condition %s: %s", c.Status, c.Description))
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stage":           app.Stage,
		"pending_actions": pendingActions,
	})
}
