package httpapi

import (
	"net/http"
	"time"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/conditions"
	"github.com/originpoint/backend/internal/domain"
)

func (s *Server) handleListConditions(w http.ResponseWriter, r *http.Request) {
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
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), appID); svcErr != nil {
		writeError(w, svcErr)
		return
	}

	all, err := s.repo.ListConditions(r.Context(), appID)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	openOnly := r.URL.Query().Get("open_only") == "true"
	out := make([]domain.Condition, 0, len(all))
	for _, c := range all {
		if openOnly && c.Status.Terminal() {
			continue
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

type createConditionRequest struct {
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	DueDate     *string `json:"due_date"`
}

// handleCreateCondition issues a new underwriting condition. Not named in
// spec.md §6.1's (selection) REST table, but required to exercise
// POST /conditions/{id}/respond's open->responded transition at all — a
// condition has to exist and be issued by someone before a borrower can
// respond to it.
func (s *Server) handleCreateCondition(w http.ResponseWriter, r *http.Request) {
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
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), appID); svcErr != nil {
		writeError(w, svcErr)
		return
	}

	var req createConditionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Description == "" {
		writeError(w, domain.NewValidationError(map[string]string{"description": "required"}))
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		if t, err := time.Parse("2006-01-02", *req.DueDate); err == nil {
			dueDate = &t
		}
	}

	id, err := s.repo.CreateCondition(r.Context(), domain.Condition{
		ApplicationID: appID,
		Description:   req.Description,
		Severity:      domain.ConditionSeverity(req.Severity),
		DueDate:       dueDate,
		IssuedBy:      principal.Subject,
	})
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	s.appendAudit(r.Context(), principal, &appID, nil, "condition_transition", map[string]interface{}{
		"condition_id": id,
		"from_status":  nil,
		"to_status":    string(domain.ConditionOpen),
	})
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "status": domain.ConditionOpen})
}

type respondConditionRequest struct {
	Status          string  `json:"status"`
	ResponseText    *string `json:"response_text"`
	WaiverRationale *string `json:"waiver_rationale"`
}

func (s *Server) handleRespondCondition(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "cid")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"cid": "must be a UUID"}))
		return
	}

	existing, err := s.repo.GetCondition(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), existing.ApplicationID); svcErr != nil {
		writeError(w, svcErr)
		return
	}

	var req respondConditionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	to := domain.ConditionStatus(req.Status)

	waiverRationale := ""
	if req.WaiverRationale != nil {
		waiverRationale = *req.WaiverRationale
	}
	iterationDelta, svcErr := conditions.Transition(conditions.TransitionInput{
		From: existing.Status, To: to, Severity: existing.Severity, WaiverRationale: waiverRationale,
	})
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	var clearedBy *string
	if to == domain.ConditionCleared {
		clearedBy = &principal.Subject
	}
	if err := s.repo.UpdateConditionStatus(r.Context(), id, to, iterationDelta, req.ResponseText, req.WaiverRationale, clearedBy); err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordConditionTransition(string(existing.Status), string(to))
	}
	s.appendAudit(r.Context(), principal, &existing.ApplicationID, nil, "condition_transition", map[string]interface{}{
		"condition_id": id,
		"from_status":  string(existing.Status),
		"to_status":    string(to),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": to})
}
