package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/appsvc"
	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
)

func TestHandleHmdaCollect_ReportsOverwrittenConflictAgainstLowerPrecedenceObservation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	appID := uuid.New()
	borrowerID := uuid.New()
	now := time.Now()
	visual := domain.MethodVisualObservation

	existingRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"application_id", "borrower_id", "race", "race_method", "ethnicity", "ethnicity_method",
			"sex", "sex_method", "age", "age_method", "updated_at",
		}).AddRow(appID, borrowerID, "White", visual, nil, nil, nil, nil, nil, nil, now)
	}

	repo := appsvc.NewRepository(db)
	hmda := appsvc.NewHmdaRepository(db)
	s := &Server{repo: repo, hmda: hmda}

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageApplication, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	mock.ExpectQuery("SELECT application_id, borrower_id, race, race_method").
		WithArgs(appID, borrowerID).WillReturnRows(existingRows())
	mock.ExpectExec("INSERT INTO hmda.demographics").WillReturnResult(sqlmock.NewResult(1, 1))

	principal := authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}
	body := strings.NewReader(`{"application_id":"` + appID.String() + `","borrower_id":"` + borrowerID.String() +
		`","race":"Asian","race_collected_method":"self_reported"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/hmda/collect", body)
	req = withPrincipalAndVars(req, principal, nil)
	rec := httptest.NewRecorder()

	s.handleHmdaCollect(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"race"`)
	require.Contains(t, rec.Body.String(), `"resolution":"overwritten"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleHmdaCollect_EqualPrecedenceKeepsExistingAndReportsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	appID := uuid.New()
	borrowerID := uuid.New()
	now := time.Now()
	selfReported := domain.MethodSelfReported

	existingRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"application_id", "borrower_id", "race", "race_method", "ethnicity", "ethnicity_method",
			"sex", "sex_method", "age", "age_method", "updated_at",
		}).AddRow(appID, borrowerID, "White", selfReported, nil, nil, nil, nil, nil, nil, now)
	}

	repo := appsvc.NewRepository(db)
	hmda := appsvc.NewHmdaRepository(db)
	s := &Server{repo: repo, hmda: hmda}

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageApplication, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	mock.ExpectQuery("SELECT application_id, borrower_id, race, race_method").
		WithArgs(appID, borrowerID).WillReturnRows(existingRows())
	mock.ExpectExec("INSERT INTO hmda.demographics").WillReturnResult(sqlmock.NewResult(1, 1))

	principal := authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}
	body := strings.NewReader(`{"application_id":"` + appID.String() + `","borrower_id":"` + borrowerID.String() +
		`","race":"Asian","race_collected_method":"self_reported"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/hmda/collect", body)
	req = withPrincipalAndVars(req, principal, nil)
	rec := httptest.NewRecorder()

	s.handleHmdaCollect(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"resolution":"kept_existing"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleHmdaCollect_IdenticalValueReportsNoConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	appID := uuid.New()
	borrowerID := uuid.New()
	now := time.Now()
	selfReported := domain.MethodSelfReported

	existingRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"application_id", "borrower_id", "race", "race_method", "ethnicity", "ethnicity_method",
			"sex", "sex_method", "age", "age_method", "updated_at",
		}).AddRow(appID, borrowerID, "Asian", selfReported, nil, nil, nil, nil, nil, nil, now)
	}

	repo := appsvc.NewRepository(db)
	hmda := appsvc.NewHmdaRepository(db)
	s := &Server{repo: repo, hmda: hmda}

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageApplication, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	mock.ExpectQuery("SELECT application_id, borrower_id, race, race_method").
		WithArgs(appID, borrowerID).WillReturnRows(existingRows())
	mock.ExpectExec("INSERT INTO hmda.demographics").WillReturnResult(sqlmock.NewResult(1, 1))

	principal := authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}
	body := strings.NewReader(`{"application_id":"` + appID.String() + `","borrower_id":"` + borrowerID.String() +
		`","race":"Asian","race_collected_method":"self_reported"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/hmda/collect", body)
	req = withPrincipalAndVars(req, principal, nil)
	rec := httptest.NewRecorder()

	s.handleHmdaCollect(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"conflicts":null}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleHmdaCollect_RequiresBorrowerID(t *testing.T) {
	s, _ := newTestServer(t)
	appID := uuid.New()

	principal := authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}
	body := strings.NewReader(`{"application_id":"` + appID.String() + `","borrower_id":"not-a-uuid"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/hmda/collect", body)
	req = withPrincipalAndVars(req, principal, nil)
	rec := httptest.NewRecorder()

	s.handleHmdaCollect(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
