package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
)

func daysParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *Server) handlePipelineAnalytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := authscope.FromContext(r.Context()); !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	days := daysParam(r, 30)
	summary, err := s.analyticsRe.PipelineSummary(r.Context(), time.Now(), days)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleDenialTrends is gated to CEO and admin per spec.md §6.1: the CEO role otherwise
// sees masked application data, but denial-trend aggregates carry no PII,
// so this is the one pipeline-wide view the role is granted in full.
func (s *Server) handleDenialTrends(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	if principal.Role != domain.RoleCEO && principal.Role != domain.RoleAdmin {
		writeError(w, domain.NewRoleError("denial trend analytics are restricted to CEO/admin"))
		return
	}

	days := daysParam(r, 90)
	var product *domain.LoanType
	if v := r.URL.Query().Get("product"); v != "" {
		lt := domain.LoanType(v)
		product = &lt
	}

	trends, err := s.analyticsRe.DenialTrends(r.Context(), time.Now(), days, product)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, trends)
}
