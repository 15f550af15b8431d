package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/originpoint/backend/internal/appsvc"
	"github.com/originpoint/backend/internal/audit"
	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/compliance"
	"github.com/originpoint/backend/internal/conditions"
	"github.com/originpoint/backend/internal/documents"
	"github.com/originpoint/backend/internal/domain"
)

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
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

	decisions, err := s.repo.ListDecisions(r.Context(), appID)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": decisions})
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
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
	d, err := s.repo.GetDecision(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), d.ApplicationID); svcErr != nil {
		writeError(w, svcErr)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type createDecisionRequest struct {
	DecisionType        string   `json:"decision_type"`
	Rationale           string   `json:"rationale"`
	OverrideRationale   *string  `json:"override_rationale"`
	DenialReasons       []string `json:"denial_reasons"`
	CreditScoreUsed     *int     `json:"credit_score_used"`
	CreditScoreSource   *string  `json:"credit_score_source"`
	CompensatingFactors []string `json:"compensating_factors"`
}

// decisionComputation is the result of running render_decision's rule
// engine without committing anything — shared by handleCreateDecision (which
// commits it) and handlePreviewDecision (which only returns it), per
// spec.md §4.6's render_decision / propose_decision pair. TargetStage is
// "" when the decision leaves the application's stage unchanged (suspend,
// or an approve that doesn't move the application past its current stage).
type decisionComputation struct {
	Decision    domain.Decision
	Status      domain.ComplianceStatus
	Results     []compliance.RuleResult
	TargetStage domain.ApplicationStage
}

// complianceFailureMessage renders the worst-of compliance.Run verdict into
// a message that names which rule(s) failed, matching spec.md §8 S3's
// literal "FAILED"/"ATR/QM" assertions on a blocked decision.
func complianceFailureMessage(results []compliance.RuleResult) string {
	names := map[string]string{"ecoa": "ECOA", "atr_qm": "ATR/QM", "trid": "TRID"}
	var failed []string
	for _, res := range results {
		if res.Status == domain.ComplianceFail {
			label := names[res.Rule]
			if label == "" {
				label = res.Rule
			}
			failed = append(failed, label)
		}
	}
	if len(failed) == 0 {
		return "compliance check FAILED"
	}
	return fmt.Sprintf("compliance check FAILED: %s", strings.Join(failed, ", "))
}

// recommendationAgrees reports whether a prior AI tool-call recommendation
// (one of "approve"/"deny"/"suspend") matches the human decision being
// recorded.
func recommendationAgrees(recommendation string, dt domain.DecisionType) bool {
	switch dt {
	case domain.DecisionApproved, domain.DecisionConditionalApproval:
		return recommendation == "approve"
	case domain.DecisionDenied:
		return recommendation == "deny"
	case domain.DecisionSuspended:
		return recommendation == "suspend"
	default:
		return false
	}
}

// computeDecision implements spec.md §4.6's render_decision algorithm:
// stage precondition, compliance-FAIL gating on approve, conditions-based
// routing between conditional_approval and clear_to_close, and a
// server-derived ai_recommendation/ai_agreement pair. It performs no
// writes — callers decide whether to commit (handleCreateDecision) or just
// report (handlePreviewDecision).
func (s *Server) computeDecision(ctx context.Context, app *domain.Application, req createDecisionRequest, principal authscope.Principal) (*decisionComputation, *domain.ServiceError) {
	if app.Stage != domain.StageUnderwriting && app.Stage != domain.StageConditionalApproval {
		return nil, domain.NewConflictError(fmt.Sprintf("decisions cannot be recorded while the application is in %s", app.Stage))
	}

	dt := domain.DecisionType(req.DecisionType)
	if dt != domain.DecisionApproved && dt != domain.DecisionDenied && dt != domain.DecisionSuspended {
		return nil, domain.NewValidationError(map[string]string{"decision_type": "must be one of approved, denied, suspended"})
	}

	borrowers, err := s.repo.ListBorrowersForApplication(ctx, app.ID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	financials, err := s.repo.ListFinancials(ctx, app.ID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	financialsByBorrower := make(map[string]domain.ApplicationFinancials, len(financials))
	for _, f := range financials {
		financialsByBorrower[f.BorrowerID.String()] = f
	}
	aggregateDTI := compliance.AggregateDTI(financials)
	borrowerIDs := make([]string, 0, len(borrowers))
	for _, b := range borrowers {
		borrowerIDs = append(borrowerIDs, b.ID.String())
	}

	docs, err := s.repo.ListDocuments(ctx, app.ID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	var loanType domain.LoanType
	if app.LoanType != nil {
		loanType = *app.LoanType
	}
	var employmentStatus domain.EmploymentStatus
	if len(borrowers) > 0 && borrowers[0].EmploymentStatus != nil {
		employmentStatus = *borrowers[0].EmploymentStatus
	}
	docsPresent := true
	for _, req := range documents.Evaluate(loanType, employmentStatus, docs) {
		if !req.IsProvided {
			docsPresent = false
			break
		}
	}

	var aiRecommendation *string
	if s.chain != nil {
		events, _, err := s.chain.Query(ctx, audit.QueryFilter{ApplicationID: &app.ID, EventType: "tool_call"})
		if err == nil {
			for i := len(events) - 1; i >= 0; i-- {
				tool, _ := events[i].EventData["tool"].(string)
				if tool != "uw_preliminary_recommendation" {
					continue
				}
				if rec, ok := events[i].EventData["recommendation"].(string); ok {
					r := rec
					aiRecommendation = &r
				}
				break
			}
		}
	}
	aiAgreement := aiRecommendation != nil && recommendationAgrees(*aiRecommendation, dt)

	decision := domain.Decision{
		ApplicationID:       app.ID,
		DecisionType:        dt,
		Rationale:           req.Rationale,
		AIRecommendation:    aiRecommendation,
		AIAgreement:         aiAgreement,
		OverrideRationale:   req.OverrideRationale,
		DenialReasons:       req.DenialReasons,
		CreditScoreUsed:     req.CreditScoreUsed,
		CreditScoreSource:   req.CreditScoreSource,
		ContributingFactors: req.CompensatingFactors,
		DecidedBy:           principal.Subject,
	}

	ecoa := compliance.CheckECOA(&decision, financialsByBorrower, borrowerIDs)
	atrQM := compliance.CheckATRQM(aggregateDTI, docsPresent, s.thresholds)
	trid := compliance.CheckTRID(app.CreatedAt, app.LeDeliveryDate, app.CdDeliveryDate, app.ClosingDate, s.thresholds)
	status, results := compliance.Run(ecoa, atrQM, trid)

	comp := &decisionComputation{Decision: decision, Status: status, Results: results}

	switch dt {
	case domain.DecisionDenied:
		if len(req.DenialReasons) == 0 {
			return nil, domain.NewValidationError(map[string]string{"denial_reasons": "at least one denial reason is required"})
		}
		comp.TargetStage = domain.StageDenied
		return comp, nil

	case domain.DecisionSuspended:
		comp.TargetStage = ""
		return comp, nil

	case domain.DecisionApproved:
		if status == domain.ComplianceFail {
			return comp, domain.NewPreconditionError(complianceFailureMessage(results))
		}
		conds, err := s.repo.ListConditions(ctx, app.ID)
		if err != nil {
			return nil, domain.NewInternalError(err)
		}
		statuses := make([]domain.ConditionStatus, 0, len(conds))
		for _, c := range conds {
			statuses = append(statuses, c.Status)
		}
		outstanding := !conditions.AllConditionsTerminal(statuses) || conditions.HasBlockingEscalation(statuses)
		if outstanding {
			comp.Decision.DecisionType = domain.DecisionConditionalApproval
			comp.TargetStage = domain.StageConditionalApproval
		} else {
			comp.Decision.DecisionType = domain.DecisionApproved
			comp.TargetStage = domain.StageClearToClose
		}
		return comp, nil
	}

	return nil, domain.NewValidationError(map[string]string{"decision_type": "unsupported"})
}

// handleCreateDecision runs spec.md §4.6's render_decision and, only when it
// succeeds, commits the stage transition and Decision row it computed —
// never on a compliance FAIL (no Decision row is written, per §8 S3) and
// never outside the underwriting/conditional_approval stages.
func (s *Server) handleCreateDecision(w http.ResponseWriter, r *http.Request) {
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
	app, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), appID)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	var req createDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DecisionType == "" || req.Rationale == "" {
		writeError(w, domain.NewValidationError(map[string]string{"decision_type": "required", "rationale": "required"}))
		return
	}

	comp, computeErr := s.computeDecision(r.Context(), app, req, principal)
	if computeErr != nil {
		switch computeErr.Kind {
		case domain.KindConflict:
			s.appendAuditError(r.Context(), principal, appID, "decision", "wrong_stage: "+computeErr.Message)
		case domain.KindPrecondition:
			s.appendAuditError(r.Context(), principal, appID, "decision", "compliance_failed: "+computeErr.Message)
		}
		if comp != nil && s.metrics != nil {
			for _, res := range comp.Results {
				s.metrics.RecordComplianceCheck(res.Rule, string(res.Status))
			}
		}
		if computeErr.Kind == domain.KindPrecondition && comp != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":               computeErr.Message,
				"status":              comp.Status,
				"compliance_results":  comp.Results,
			})
			return
		}
		writeError(w, computeErr)
		return
	}

	if s.metrics != nil {
		for _, res := range comp.Results {
			s.metrics.RecordComplianceCheck(res.Rule, string(res.Status))
		}
	}

	if comp.TargetStage != "" && comp.TargetStage != app.Stage {
		newStage, transErr := appsvc.TransitionStage(app.Stage, comp.TargetStage)
		if transErr != nil {
			writeError(w, transErr)
			return
		}
		if err := s.repo.UpdateStage(r.Context(), appID, newStage); err != nil {
			writeError(w, err)
			return
		}
		s.appendAudit(r.Context(), principal, &appID, nil, "stage_transition", map[string]interface{}{
			"from_stage": string(app.Stage),
			"to_stage":   string(newStage),
		})
	}

	id, err := s.repo.RecordDecision(r.Context(), comp.Decision)
	if err != nil {
		writeError(w, err)
		return
	}

	if comp.Decision.AIRecommendation != nil && !comp.Decision.AIAgreement && comp.Decision.OverrideRationale != nil {
		s.appendAudit(r.Context(), principal, &appID, &id, "override", map[string]interface{}{
			"ai_recommendation":  *comp.Decision.AIRecommendation,
			"decision_type":      string(comp.Decision.DecisionType),
			"override_rationale": *comp.Decision.OverrideRationale,
		})
	}

	s.appendAudit(r.Context(), principal, &appID, &id, "decision", map[string]interface{}{
		"decision_type":     string(comp.Decision.DecisionType),
		"compliance_status": string(comp.Status),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":                 id,
		"status":             comp.Status,
		"compliance_results": comp.Results,
	})
}

// handlePreviewDecision implements spec.md §4.6's propose_decision: the same
// rule engine as handleCreateDecision, with zero writes and zero audit
// events, so underwriters can see how a decision would resolve before
// committing to it.
func (s *Server) handlePreviewDecision(w http.ResponseWriter, r *http.Request) {
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
	app, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), appID)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	var req createDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DecisionType == "" || req.Rationale == "" {
		writeError(w, domain.NewValidationError(map[string]string{"decision_type": "required", "rationale": "required"}))
		return
	}

	comp, computeErr := s.computeDecision(r.Context(), app, req, principal)
	if computeErr != nil {
		writeError(w, computeErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"decision_type":       comp.Decision.DecisionType,
		"target_stage":        comp.TargetStage,
		"status":              comp.Status,
		"compliance_results":  comp.Results,
		"ai_recommendation":   comp.Decision.AIRecommendation,
		"ai_agreement":        comp.Decision.AIAgreement,
	})
}
