package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/appsvc"
	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := appsvc.NewRepository(db)
	return &Server{repo: repo}, mock
}

func withPrincipalAndVars(r *http.Request, p authscope.Principal, vars map[string]string) *http.Request {
	r = r.WithContext(authscope.WithPrincipal(r.Context(), p))
	return mux.SetURLVars(r, vars)
}

func TestHandleCreateApplication_WithLoanDetailsAdvancesToApplicationStage(t *testing.T) {
	s, mock := newTestServer(t)
	appID := uuid.New()
	borrowerID := uuid.New()
	now := time.Now()
	propertyAddress := "100 Test St"
	loanType := domain.LoanConventional30

	mock.ExpectQuery("SELECT id FROM borrowers").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(borrowerID))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_borrowers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec("UPDATE applications SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applications SET stage").WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageApplication, loanType, propertyAddress, nil, nil, nil, nil, nil, nil, now, now))

	principal := authscope.Principal{Subject: "borrower:sarah-001", Role: domain.RoleBorrower}
	body := strings.NewReader(`{"loan_type":"conventional_30","property_address":"100 Test St","loan_amount":300000,"property_value":400000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/applications/", body)
	req = withPrincipalAndVars(req, principal, nil)
	rec := httptest.NewRecorder()

	s.handleCreateApplication(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"stage":"application"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleGetApplication_OutOfScopeReturns404NotForbidden(t *testing.T) {
	s, mock := newTestServer(t)
	appID := uuid.New()

	// Scoped query finds no matching row because the borrower isn't a
	// party to this application — the caller must see a 404, never a 403,
	// per spec.md §8 S6's "never leak existence via a 403" rule.
	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}))

	principal := authscope.Principal{Subject: "borrower-1", Role: domain.RoleBorrower}
	req := httptest.NewRequest(http.MethodGet, "/api/applications/"+appID.String(), nil)
	req = withPrincipalAndVars(req, principal, map[string]string{"id": appID.String()})
	rec := httptest.NewRecorder()

	s.handleGetApplication(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleGetApplication_CEOGetsMaskedBorrowerPII(t *testing.T) {
	s, mock := newTestServer(t)
	appID := uuid.New()
	borrowerID := uuid.New()
	now := time.Now()
	ssn := "123-45-6789"

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageInquiry, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	mock.ExpectQuery("SELECT b.id, b.external_subject").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "external_subject", "first_name", "last_name", "email", "ssn", "dob", "employment_status", "created_at", "updated_at",
		}).AddRow(borrowerID, "sub-1", "Jane", "Doe", "jane@example.com", ssn, nil, nil, now, now))

	principal := authscope.Principal{Subject: "ceo-1", Role: domain.RoleCEO}
	req := httptest.NewRequest(http.MethodGet, "/api/applications/"+appID.String(), nil)
	req = withPrincipalAndVars(req, principal, map[string]string{"id": appID.String()})
	rec := httptest.NewRecorder()

	s.handleGetApplication(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), ssn)
	require.Contains(t, rec.Body.String(), "***-**-6789")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListApplications_PaginatesScopedResults(t *testing.T) {
	s, mock := newTestServer(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
		"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
	})
	for i := 0; i < 3; i++ {
		rows.AddRow(uuid.New(), domain.StageInquiry, nil, nil, nil, nil, nil, nil, nil, nil, now, now)
	}
	mock.ExpectQuery("SELECT id, stage, loan_type").WillReturnRows(rows)

	principal := authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}
	req := httptest.NewRequest(http.MethodGet, "/api/applications/?limit=2&offset=0", nil)
	req = withPrincipalAndVars(req, principal, nil)
	rec := httptest.NewRecorder()

	s.handleListApplications(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"pagination":{"total":3,"has_more":true}`)
	require.NoError(t, mock.ExpectationsWereMet())
}
