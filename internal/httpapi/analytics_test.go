package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
)

func TestHandleDenialTrends_LoanOfficerIsForbidden(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/denial-trends", nil)
	req = withPrincipalAndVars(req, authscope.Principal{Subject: "lo-1", Role: domain.RoleLoanOfficer}, nil)
	rec := httptest.NewRecorder()

	s.handleDenialTrends(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDaysParam_FallsBackToDefaultOnInvalidInput(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?days=not-a-number", nil)
	require.Equal(t, 30, daysParam(req, 30))

	req = httptest.NewRequest(http.MethodGet, "/x?days=60", nil)
	require.Equal(t, 60, daysParam(req, 30))
}
