package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/blobstore"
	"github.com/originpoint/backend/internal/domain"
)

type documentView struct {
	ID           uuid.UUID             `json:"id"`
	DocType      domain.DocumentType   `json:"doc_type"`
	Status       domain.DocumentStatus `json:"status"`
	QualityFlags []string              `json:"quality_flags,omitempty"`
	FilePath     *string               `json:"file_path,omitempty"`
}

// allowedUploadContentTypes is the spec.md §4.7 step 1 allow-list: anything
// else is rejected with 422 before a blob is ever written.
var allowedUploadContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

func toDocumentView(d domain.Document, includeFilePath bool) documentView {
	v := documentView{ID: d.ID, DocType: d.DocType, Status: d.Status, QualityFlags: d.QualityFlags}
	if includeFilePath {
		v.FilePath = &d.FilePath
	}
	return v
}

// handleUploadDocument accepts a multipart upload, stores the blob, creates
// the document row, and enqueues extraction. The extraction worker expects
// page-level text; this codebase has no PDF-rendering pipeline, so the
// uploaded content is handed to it as a single page, matching what a
// plain-text or already-OCR'd upload actually looks like.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(s.cfg.Documents.MaxUploadBytes); err != nil {
		writeError(w, domain.NewPayloadTooLargeError("upload exceeds the maximum allowed size"))
		return
	}
	docTypeRaw := r.FormValue("doc_type")
	if docTypeRaw == "" {
		writeError(w, domain.NewValidationError(map[string]string{"doc_type": "required"}))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"file": "required multipart file field"}))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedUploadContentTypes[contentType] {
		writeError(w, domain.NewValidationError(map[string]string{"content_type": "must be one of application/pdf, image/png, image/jpeg"}))
		return
	}

	content, err := readUploadedFile(file, s.cfg.Documents.MaxUploadBytes)
	if err != nil {
		writeError(w, domain.NewPayloadTooLargeError("upload exceeds the maximum allowed size"))
		return
	}

	documentID := uuid.New()
	key := fmt.Sprintf("%s/%s/%s", appID, documentID, header.Filename)
	filePath, err := s.blobs.Put(key, content, contentType)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	// Attach the application's primary borrower, not the uploading
	// principal's own borrower record — a loan officer or underwriter
	// uploading on a borrower's behalf must not become that borrower,
	// per spec.md §4.7 step 2.
	borrowers, err := s.repo.ListBorrowersForApplication(r.Context(), appID)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	if len(borrowers) == 0 {
		writeError(w, domain.NewPreconditionError("application has no borrower to attach the document to"))
		return
	}
	borrowerID := borrowers[0].ID

	docType := domain.DocumentType(docTypeRaw)
	createdID, err := s.repo.CreateDocument(r.Context(), domain.Document{
		ID: documentID, ApplicationID: appID, BorrowerID: &borrowerID, DocType: docType,
		FilePath: filePath, UploadedBy: principal.Subject,
	})
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	if s.metrics != nil {
		s.metrics.RecordDocumentUpload(string(docType))
	}
	s.extraction.Enqueue(createdID, appID, borrowerID, docType, []string{string(content)})

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": createdID, "status": domain.DocStatusUploaded})
}

func readUploadedFile(f multipart.File, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(f, maxBytes+1)
	content, err := blobstore.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("upload exceeds %d bytes", maxBytes)
	}
	return content, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
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

	docs, err := s.repo.ListDocuments(r.Context(), appID)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}

	_, docMetaOnly := ceoScopes(principal)
	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, toDocumentView(d, !docMetaOnly))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

func (s *Server) documentInScope(r *http.Request, principal authscope.Principal, docID uuid.UUID) (*domain.Document, *domain.ServiceError) {
	doc, err := s.repo.GetDocument(r.Context(), docID)
	if err != nil {
		if se, ok := err.(*domain.ServiceError); ok {
			return nil, se
		}
		return nil, domain.NewInternalError(err)
	}
	if _, svcErr := s.applicationInScope(r, authscope.ForPrincipal(principal), doc.ApplicationID); svcErr != nil {
		if se, ok := svcErr.(*domain.ServiceError); ok {
			return nil, se
		}
		return nil, domain.NewInternalError(svcErr)
	}
	return doc, nil
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "doc_id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"doc_id": "must be a UUID"}))
		return
	}

	doc, svcErr := s.documentInScope(r, principal, id)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	_, docMetaOnly := ceoScopes(principal)
	writeJSON(w, http.StatusOK, toDocumentView(*doc, !docMetaOnly))
}

// handleGetDocumentContent returns the raw blob bytes. Per spec.md §8 S6,
// the CEO role may see that a document exists (metadata-only, via
// handleGetDocument) but never its content.
func (s *Server) handleGetDocumentContent(w http.ResponseWriter, r *http.Request) {
	principal, ok := authscope.FromContext(r.Context())
	if !ok {
		writeError(w, domain.NewAuthError("missing principal"))
		return
	}
	id, err := pathUUID(r, "doc_id")
	if err != nil {
		writeError(w, domain.NewValidationError(map[string]string{"doc_id": "must be a UUID"}))
		return
	}

	doc, svcErr := s.documentInScope(r, principal, id)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	if _, docMetaOnly := ceoScopes(principal); docMetaOnly {
		writeError(w, domain.NewRoleError("document content is not available to this role"))
		return
	}

	content, err := s.blobs.Get(doc.FilePath)
	if err != nil {
		writeError(w, domain.NewInternalError(err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
