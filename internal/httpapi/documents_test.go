package httpapi

import (
	"bytes"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/config"
	"github.com/originpoint/backend/internal/domain"
)

func newMultipartUploadRequest(t *testing.T, appID uuid.UUID, docType, contentType, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("doc_type", docType))

	partHeader := make(map[string][]string)
	partHeader["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	partHeader["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/applications/"+appID.String()+"/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleGetDocumentContent_CEORoleIsForbidden(t *testing.T) {
	s, mock := newTestServer(t)
	appID := uuid.New()
	docID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT id, application_id, borrower_id, condition_id").
		WithArgs(docID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "application_id", "borrower_id", "condition_id", "doc_type", "status", "file_path", "quality_flags", "uploaded_by", "created_at", "updated_at",
		}).AddRow(docID, appID, nil, nil, domain.DocPayStub, domain.DocStatusUploaded, "x/y/z.pdf", "{}", "borrower-1", now, now))

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageInquiry, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	principal := authscope.Principal{Subject: "ceo-1", Role: domain.RoleCEO}
	req := httptest.NewRequest(http.MethodGet, "/api/applications/"+appID.String()+"/documents/"+docID.String()+"/content", nil)
	req = withPrincipalAndVars(req, principal, map[string]string{"id": appID.String(), "doc_id": docID.String()})
	rec := httptest.NewRecorder()

	s.handleGetDocumentContent(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleUploadDocument_RejectsDisallowedContentType(t *testing.T) {
	s, mock := newTestServer(t)
	s.cfg = &config.Config{Documents: config.DocumentsConfig{MaxUploadBytes: 1 << 20}}
	appID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT id, stage, loan_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "stage", "loan_type", "property_address", "loan_amount", "property_value",
			"assigned_to", "le_delivery_date", "cd_delivery_date", "closing_date", "created_at", "updated_at",
		}).AddRow(appID, domain.StageProcessing, nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	principal := authscope.Principal{Subject: "borrower-1", Role: domain.RoleBorrower}
	req := newMultipartUploadRequest(t, appID, "pay_stub", "application/zip", "evil.zip", []byte("not a document"))
	req = withPrincipalAndVars(req, principal, map[string]string{"id": appID.String()})
	rec := httptest.NewRecorder()

	s.handleUploadDocument(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "content_type")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleGetDocument_NotFoundPropagatesAsNotFound(t *testing.T) {
	s, mock := newTestServer(t)
	docID := uuid.New()

	mock.ExpectQuery("SELECT id, application_id, borrower_id, condition_id").
		WithArgs(docID).
		WillReturnError(sql.ErrNoRows)

	principal := authscope.Principal{Subject: "uw-1", Role: domain.RoleUnderwriter}
	req := httptest.NewRequest(http.MethodGet, "/api/applications/"+uuid.New().String()+"/documents/"+docID.String(), nil)
	req = withPrincipalAndVars(req, principal, map[string]string{"doc_id": docID.String()})
	rec := httptest.NewRecorder()

	s.handleGetDocument(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
