package documents

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/audit"
	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/llm"
	"github.com/originpoint/backend/internal/obs"
)

// Store is the persistence boundary the extraction worker writes through;
// internal/appsvc supplies the concrete implementation over internal/db.
type Store interface {
	UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error
	SaveExtractionFields(ctx context.Context, documentID uuid.UUID, fields []llm.ExtractionField) error
	SaveHmdaFields(ctx context.Context, applicationID, borrowerID uuid.UUID, fields []llm.ExtractionField, method domain.HmdaMethod) error
	RecordFreshnessFlag(ctx context.Context, documentID uuid.UUID, flag FreshnessFlag) error
}

type extractionJob struct {
	DocumentID    uuid.UUID
	ApplicationID uuid.UUID
	BorrowerID    uuid.UUID
	DocType       domain.DocumentType
	Pages         []string
}

// ExtractionWorker runs a fixed-size background worker pool pulling
// uploaded documents off a channel and extracting their fields, mirroring
// the teacher's webhooks.Dispatcher channel/worker-pool shape
// (internal/webhooks/dispatcher.go) — background goroutine pool reading a
// buffered job channel, one per spec.md §9 "background extraction tasks".
type ExtractionWorker struct {
	client  llm.ExtractionClient
	store   Store
	metrics *obs.Metrics
	chain   *audit.Chain
	queue   chan extractionJob
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewExtractionWorker wires the background worker pool; chain may be nil
// (tests construct the worker directly), in which case document status
// changes are simply not audited.
func NewExtractionWorker(client llm.ExtractionClient, store Store, metrics *obs.Metrics, chain *audit.Chain, workers, queueDepth int) *ExtractionWorker {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}

	w := &ExtractionWorker{
		client:  client,
		store:   store,
		metrics: metrics,
		chain:   chain,
		queue:   make(chan extractionJob, queueDepth),
		logger:  slog.Default().With("component", "extraction_worker"),
	}

	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
	return w
}

// auditDocumentStatus records a document_status_change event, per spec.md
// §7's "audit on error" rule — failed extraction attempts are audited the
// same as successful ones.
func (w *ExtractionWorker) auditDocumentStatus(ctx context.Context, job extractionJob, status domain.DocumentStatus) {
	if w.chain == nil {
		return
	}
	if _, err := w.chain.Append(ctx, audit.Event{
		EventType:     "document_status_change",
		ApplicationID: &job.ApplicationID,
		EventData: map[string]interface{}{
			"document_id": job.DocumentID,
			"doc_type":    string(job.DocType),
			"status":      string(status),
		},
	}); err != nil {
		w.logger.Error("audit append failed", "error", err, "document_id", job.DocumentID)
	}
}

// Enqueue schedules a document for extraction without blocking. If the
// queue is saturated the job is dropped with a warning and Enqueue returns
// false; the document row keeps the status it already has.
func (w *ExtractionWorker) Enqueue(documentID, applicationID, borrowerID uuid.UUID, docType domain.DocumentType, pages []string) bool {
	job := extractionJob{DocumentID: documentID, ApplicationID: applicationID, BorrowerID: borrowerID, DocType: docType, Pages: pages}
	select {
	case w.queue <- job:
		return true
	default:
		w.logger.Warn("extraction queue full, dropping job", "document_id", documentID)
		return false
	}
}

func (w *ExtractionWorker) run(id int) {
	defer w.wg.Done()
	for job := range w.queue {
		w.process(job)
	}
}

func (w *ExtractionWorker) process(job extractionJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	start := time.Now()
	if err := w.store.UpdateDocumentStatus(ctx, job.DocumentID, domain.DocStatusProcessing); err != nil {
		w.logger.Error("update status to processing failed", "error", err, "document_id", job.DocumentID)
		return
	}
	w.auditDocumentStatus(ctx, job, domain.DocStatusProcessing)

	fields, err := w.client.ExtractFields(ctx, string(job.DocType), job.Pages)
	if err != nil {
		w.logger.Error("extraction failed", "error", err, "document_id", job.DocumentID)
		if w.metrics != nil {
			w.metrics.RecordExtraction(string(job.DocType), false, time.Since(start).Seconds())
		}
		_ = w.store.UpdateDocumentStatus(ctx, job.DocumentID, domain.DocStatusProcessingFailed)
		w.auditDocumentStatus(ctx, job, domain.DocStatusProcessingFailed)
		return
	}

	lending, hmdaFields := SplitExtractionFields(fields)

	if err := w.store.SaveExtractionFields(ctx, job.DocumentID, lending); err != nil {
		w.logger.Error("save extraction fields failed", "error", err, "document_id", job.DocumentID)
		_ = w.store.UpdateDocumentStatus(ctx, job.DocumentID, domain.DocStatusProcessingFailed)
		w.auditDocumentStatus(ctx, job, domain.DocStatusProcessingFailed)
		return
	}

	if len(hmdaFields) > 0 {
		if err := w.store.SaveHmdaFields(ctx, job.ApplicationID, job.BorrowerID, hmdaFields, domain.MethodDocumentExtraction); err != nil {
			w.logger.Error("save hmda fields failed", "error", err, "document_id", job.DocumentID)
		}
	}

	extractedValues := make(map[string]string, len(lending))
	for _, f := range lending {
		extractedValues[f.FieldName] = f.FieldValue
	}
	if flag, ok := CheckFreshness(job.DocType, extractedValues, time.Now()); ok && flag != FlagNone {
		_ = w.store.RecordFreshnessFlag(ctx, job.DocumentID, flag)
		if w.metrics != nil {
			w.metrics.RecordFreshnessFailure(string(job.DocType), string(flag))
		}
	}

	if err := w.store.UpdateDocumentStatus(ctx, job.DocumentID, domain.DocStatusProcessingComplete); err != nil {
		w.logger.Error("update status to complete failed", "error", err, "document_id", job.DocumentID)
	} else {
		w.auditDocumentStatus(ctx, job, domain.DocStatusProcessingComplete)
	}

	if w.metrics != nil {
		w.metrics.RecordExtraction(string(job.DocType), true, time.Since(start).Seconds())
	}
}

// Close stops accepting new jobs and waits for in-flight jobs to drain.
func (w *ExtractionWorker) Close() {
	close(w.queue)
	w.wg.Wait()
}
