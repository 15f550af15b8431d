package appsvc

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// REPOSITORY UNIT TESTS — sqlmock, no live database required
// ============================================================================

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestCreateApplication_InsertsApplicationAndPrimaryBorrower(t *testing.T) {
	repo, mock := newMockRepo(t)
	borrowerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO application_borrowers").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := repo.CreateApplication(context.Background(), borrowerID)

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApplication_ReturnsNotFoundServiceError(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, stage").WillReturnError(sql.ErrNoRows)

	app, err := repo.GetApplication(context.Background(), id)

	assert.Nil(t, app)
	require.Error(t, err)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.KindNotFound, svcErr.Kind)
}

func TestUpdateStage_ReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE applications SET stage").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStage(context.Background(), id, domain.StageProcessing)

	require.Error(t, err)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.KindNotFound, svcErr.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDemoData_SkipsWhenConfigHashAlreadySeeded(t *testing.T) {
	repo, mock := newMockRepo(t)
	hash := "abc123"
	seededAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"config_hash", "seeded_at", "borrowers", "active_applications", "historical_loans", "hmda_demographics"}).
		AddRow(hash, seededAt, 10, 5, 3, 10)
	mock.ExpectQuery("SELECT config_hash, seeded_at").WillReturnRows(rows)

	seedFnCalled := false
	manifest, created, err := repo.SeedDemoData(context.Background(), hash, func(tx *sql.Tx) (domain.DemoDataManifest, error) {
		seedFnCalled = true
		return domain.DemoDataManifest{}, nil
	})

	assert.NoError(t, err)
	assert.False(t, created)
	assert.False(t, seedFnCalled)
	assert.Equal(t, hash, manifest.ConfigHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDemoData_RunsSeedFnWhenNotYetSeeded(t *testing.T) {
	repo, mock := newMockRepo(t)
	hash := "fresh-hash"

	mock.ExpectQuery("SELECT config_hash, seeded_at").WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO demo_data_manifests").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	manifest, created, err := repo.SeedDemoData(context.Background(), hash, func(tx *sql.Tx) (domain.DemoDataManifest, error) {
		return domain.DemoDataManifest{Borrowers: 20, ActiveApplications: 8}, nil
	})

	assert.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, hash, manifest.ConfigHash)
	assert.Equal(t, 20, manifest.Borrowers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateConditionStatus_AppliesIterationDeltaAndCoalescedFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	response := "pay stubs attached"

	mock.ExpectExec("UPDATE conditions SET").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpdateConditionStatus(context.Background(), id, domain.ConditionUnderReview, 0, &response, nil, nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApplicationFields_AppliesSparsePatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	addr := "123 Main St"

	mock.ExpectExec("UPDATE applications SET").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpdateApplicationFields(context.Background(), id, ApplicationPatch{PropertyAddress: &addr})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApplicationFields_NotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE applications SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateApplicationFields(context.Background(), id, ApplicationPatch{})

	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.KindNotFound, svcErr.Kind)
}

func TestAddBorrowerToApplication_Inserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	appID, borrowerID := uuid.New(), uuid.New()

	mock.ExpectExec("INSERT INTO application_borrowers").
		WithArgs(sqlmock.AnyArg(), appID, borrowerID, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.AddBorrowerToApplication(context.Background(), appID, borrowerID, false)

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveBorrowerFromApplication_NotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock := newMockRepo(t)
	appID, borrowerID := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM application_borrowers").
		WithArgs(appID, borrowerID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveBorrowerFromApplication(context.Background(), appID, borrowerID)

	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.KindNotFound, svcErr.Kind)
}

func TestCreateDocument_Inserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	appID := uuid.New()

	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.CreateDocument(context.Background(), domain.Document{
		ApplicationID: appID,
		DocType:       domain.DocPayStub,
		FilePath:      appID.String() + "/doc-1/paystub.pdf",
		UploadedBy:    "borrower-1",
	})

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocument_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, application_id, borrower_id, condition_id").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDocument(context.Background(), id)

	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.KindNotFound, svcErr.Kind)
}

func TestListDecisions_UnpacksDenialReasonsArray(t *testing.T) {
	repo, mock := newMockRepo(t)
	appID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "decision_type", "rationale", "ai_recommendation", "ai_agreement",
		"override_rationale", "denial_reasons", "credit_score_used", "credit_score_source", "contributing_factors", "decided_by", "created_at",
	}).AddRow(uuid.New(), appID, domain.DecisionDenied, "DTI too high", nil, false, nil, "{high_dti,low_reserves}", nil, nil, "{}", "underwriter-1", now)

	mock.ExpectQuery("SELECT id, application_id, decision_type").
		WithArgs(appID).
		WillReturnRows(rows)

	decisions, err := repo.ListDecisions(context.Background(), appID)

	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, []string{"high_dti", "low_reserves"}, decisions[0].DenialReasons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBorrower_ReturnsNotFoundServiceError(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, external_subject").WithArgs(id).WillReturnError(sql.ErrNoRows)

	b, err := repo.GetBorrower(context.Background(), id)

	assert.Nil(t, b)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.KindNotFound, svcErr.Kind)
}

func TestListBorrowersForApplication_OrdersPrimaryFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	appID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "external_subject", "first_name", "last_name", "email", "ssn", "dob", "employment_status", "created_at", "updated_at"}).
		AddRow(uuid.New(), "borrower:sarah-001", "Sarah", "Connor", "sarah@example.com", nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT b.id, b.external_subject.*ORDER BY ab.is_primary DESC").WithArgs(appID).WillReturnRows(rows)

	borrowers, err := repo.ListBorrowersForApplication(context.Background(), appID)

	require.NoError(t, err)
	require.Len(t, borrowers, 1)
	assert.Equal(t, "Sarah", borrowers[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateBorrowerByExternalSubject_ReturnsExistingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM borrowers").
		WithArgs("borrower:sarah-001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing))

	id, err := repo.GetOrCreateBorrowerByExternalSubject(context.Background(), "borrower:sarah-001")

	assert.NoError(t, err)
	assert.Equal(t, existing, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateBorrowerByExternalSubject_CreatesOnFirstSight(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := uuid.New()

	mock.ExpectQuery("SELECT id FROM borrowers").
		WithArgs("borrower:new-guy").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO borrowers").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id FROM borrowers").
		WithArgs("borrower:new-guy").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(created))

	id, err := repo.GetOrCreateBorrowerByExternalSubject(context.Background(), "borrower:new-guy")

	assert.NoError(t, err)
	assert.Equal(t, created, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
