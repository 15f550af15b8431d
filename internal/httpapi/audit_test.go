package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
)

func TestRequireAdmin_RejectsNonAdminRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit", nil)
	req = withPrincipalAndVars(req, authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}, nil)

	_, svcErr := requireAdmin(req)

	require.NotNil(t, svcErr)
	require.Equal(t, domain.KindRole, svcErr.Kind)
}

func TestRequireAdmin_AllowsAdminRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit", nil)
	req = withPrincipalAndVars(req, authscope.Principal{Subject: "admin-1", Role: domain.RoleAdmin}, nil)

	principal, svcErr := requireAdmin(req)

	require.Nil(t, svcErr)
	require.Equal(t, domain.RoleAdmin, principal.Role)
}

func TestHandleAdminAudit_NonAdminIsForbidden(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit", nil)
	req = withPrincipalAndVars(req, authscope.Principal{Subject: "borrower-1", Role: domain.RoleBorrower}, nil)
	rec := httptest.NewRecorder()

	s.handleAdminAudit(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
