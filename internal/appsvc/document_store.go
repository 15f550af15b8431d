package appsvc

import (
	"context"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/documents"
	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/llm"
)

// DocumentStore composes the lending-schema Repository and the
// hmda-schema HmdaRepository into the single documents.Store boundary
// internal/documents.ExtractionWorker writes through — the two role-scoped
// connections stay behind separate structs, but the worker only sees one
// interface.
type DocumentStore struct {
	Lending *Repository
	Hmda    *HmdaRepository
}

var _ documents.Store = (*DocumentStore)(nil)

func NewDocumentStore(lending *Repository, hmda *HmdaRepository) *DocumentStore {
	return &DocumentStore{Lending: lending, Hmda: hmda}
}

func (s *DocumentStore) UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	return s.Lending.UpdateDocumentStatus(ctx, documentID, status)
}

func (s *DocumentStore) SaveExtractionFields(ctx context.Context, documentID uuid.UUID, fields []llm.ExtractionField) error {
	return s.Lending.SaveExtractionFields(ctx, documentID, fields)
}

func (s *DocumentStore) SaveHmdaFields(ctx context.Context, applicationID, borrowerID uuid.UUID, fields []llm.ExtractionField, method domain.HmdaMethod) error {
	return s.Hmda.SaveExtractionFields(ctx, applicationID, borrowerID, fields, method)
}

func (s *DocumentStore) RecordFreshnessFlag(ctx context.Context, documentID uuid.UUID, flag documents.FreshnessFlag) error {
	return s.Lending.RecordFreshnessFlag(ctx, documentID, flag)
}
