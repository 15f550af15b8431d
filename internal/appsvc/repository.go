package appsvc

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/documents"
	"github.com/originpoint/backend/internal/llm"
)

// Repository is the lending-schema persistence layer for applications,
// borrowers, financials, conditions, and decisions. It talks to Postgres
// through the lending_app role connection (internal/db.Pool.Lending),
// mirroring the teacher's direct database/sql usage in
// internal/gvisor/database_state.go rather than an ORM.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateBorrower(ctx context.Context, b domain.Borrower) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO borrowers (id, external_subject, first_name, last_name, email, ssn, dob, employment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, b.ExternalSubject, b.FirstName, b.LastName, b.Email, b.SSN, b.DOB, b.EmploymentStatus)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create borrower: %w", err)
	}
	return id, nil
}

// GetOrCreateBorrowerByExternalSubject looks up the borrower row for a
// principal's JWT subject, creating a bare-minimum row on first sight. A
// principal only ever gets one Borrower row no matter how many
// applications they start (spec.md §8's "same Borrower (count=1)"
// idempotence property).
func (r *Repository) GetOrCreateBorrowerByExternalSubject(ctx context.Context, externalSubject string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM borrowers WHERE external_subject = $1`, externalSubject).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("lookup borrower: %w", err)
	}

	id = uuid.New()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO borrowers (id, external_subject, first_name, last_name, email)
		VALUES ($1, $2, '', '', '')
		ON CONFLICT (external_subject) DO NOTHING`, id, externalSubject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create borrower: %w", err)
	}
	return r.GetOrCreateBorrowerByExternalSubject(ctx, externalSubject)
}

func (r *Repository) CreateApplication(ctx context.Context, primaryBorrowerID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO applications (id, stage) VALUES ($1, $2)`, id, domain.StageInquiry); err != nil {
		return uuid.Nil, fmt.Errorf("insert application: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO application_borrowers (id, application_id, borrower_id, is_primary)
		VALUES ($1, $2, $3, true)`, uuid.New(), id, primaryBorrowerID); err != nil {
		return uuid.Nil, fmt.Errorf("insert application_borrowers: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *Repository) GetApplication(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	var app domain.Application
	var loanType sql.NullString
	var propertyAddress sql.NullString
	var assignedTo sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, stage, loan_type, property_address, loan_amount, property_value,
		       assigned_to, le_delivery_date, cd_delivery_date, closing_date, created_at, updated_at
		FROM applications WHERE id = $1`, id).Scan(
		&app.ID, &app.Stage, &loanType, &propertyAddress, &app.LoanAmount, &app.PropertyValue,
		&assignedTo, &app.LeDeliveryDate, &app.CdDeliveryDate, &app.ClosingDate, &app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("application not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	if loanType.Valid {
		lt := domain.LoanType(loanType.String)
		app.LoanType = &lt
	}
	if propertyAddress.Valid {
		app.PropertyAddress = &propertyAddress.String
	}
	if assignedTo.Valid {
		app.AssignedTo = &assignedTo.String
	}
	return &app, nil
}

// ListApplicationsForScope applies an authscope.DataScope predicate (built
// by the caller via authscope.ApplicationsPredicate) and returns every
// application the principal is entitled to see.
func (r *Repository) ListApplicationsForScope(ctx context.Context, whereClause string, args []interface{}) ([]domain.Application, error) {
	query := `SELECT id, stage, loan_type, property_address, loan_amount, property_value,
	                 assigned_to, le_delivery_date, cd_delivery_date, closing_date, created_at, updated_at
	          FROM applications`
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []domain.Application
	for rows.Next() {
		var app domain.Application
		var loanType, propertyAddress, assignedTo sql.NullString
		if err := rows.Scan(&app.ID, &app.Stage, &loanType, &propertyAddress, &app.LoanAmount, &app.PropertyValue,
			&assignedTo, &app.LeDeliveryDate, &app.CdDeliveryDate, &app.ClosingDate, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		if loanType.Valid {
			lt := domain.LoanType(loanType.String)
			app.LoanType = &lt
		}
		if propertyAddress.Valid {
			app.PropertyAddress = &propertyAddress.String
		}
		if assignedTo.Valid {
			app.AssignedTo = &assignedTo.String
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// UpdateStage persists a validated stage transition (the caller runs
// appsvc.TransitionStage first).
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage domain.ApplicationStage) error {
	res, err := r.db.ExecContext(ctx, `UPDATE applications SET stage = $1, updated_at = now() WHERE id = $2`, stage, id)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("application not found")
	}
	return nil
}

// UpdateApplicationFields applies a sparse PATCH per spec.md §6.1: only the
// non-nil fields are written, so a caller can update loan_amount without
// touching property_address.
type ApplicationPatch struct {
	LoanType        *domain.LoanType
	PropertyAddress *string
	LoanAmount      *decimal.Decimal
	PropertyValue   *decimal.Decimal
	AssignedTo      *string
}

func (r *Repository) UpdateApplicationFields(ctx context.Context, id uuid.UUID, patch ApplicationPatch) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET
			loan_type        = COALESCE($1, loan_type),
			property_address = COALESCE($2, property_address),
			loan_amount       = COALESCE($3, loan_amount),
			property_value    = COALESCE($4, property_value),
			assigned_to       = COALESCE($5, assigned_to),
			updated_at        = now()
		WHERE id = $6`,
		patch.LoanType, patch.PropertyAddress, patch.LoanAmount, patch.PropertyValue, patch.AssignedTo, id)
	if err != nil {
		return fmt.Errorf("update application fields: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("application not found")
	}
	return nil
}

// ---- application borrowers ----

func (r *Repository) AddBorrowerToApplication(ctx context.Context, applicationID, borrowerID uuid.UUID, isPrimary bool) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO application_borrowers (id, application_id, borrower_id, is_primary)
		VALUES ($1, $2, $3, $4)`,
		id, applicationID, borrowerID, isPrimary)
	if err != nil {
		return uuid.Nil, fmt.Errorf("add borrower to application: %w", err)
	}
	return id, nil
}

// GetBorrower loads a single borrower row, SSN/DOB included — the httpapi
// layer is responsible for masking those fields before they reach a
// CEO-scoped response (spec.md §8 S6).
func (r *Repository) GetBorrower(ctx context.Context, id uuid.UUID) (*domain.Borrower, error) {
	var b domain.Borrower
	var employmentStatus sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, external_subject, first_name, last_name, email, ssn, dob, employment_status, created_at, updated_at
		FROM borrowers WHERE id = $1`, id).Scan(
		&b.ID, &b.ExternalSubject, &b.FirstName, &b.LastName, &b.Email, &b.SSN, &b.DOB, &employmentStatus, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("borrower not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get borrower: %w", err)
	}
	if employmentStatus.Valid {
		es := domain.EmploymentStatus(employmentStatus.String)
		b.EmploymentStatus = &es
	}
	return &b, nil
}

// ListBorrowersForApplication joins application_borrowers to borrowers so a
// GET /applications/{id} response can embed the full borrower list rather
// than just the link rows ListApplicationBorrowers returns.
func (r *Repository) ListBorrowersForApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Borrower, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.external_subject, b.first_name, b.last_name, b.email, b.ssn, b.dob, b.employment_status, b.created_at, b.updated_at
		FROM borrowers b
		JOIN application_borrowers ab ON ab.borrower_id = b.id
		WHERE ab.application_id = $1
		ORDER BY ab.is_primary DESC, ab.created_at`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list borrowers for application: %w", err)
	}
	defer rows.Close()

	var out []domain.Borrower
	for rows.Next() {
		var b domain.Borrower
		var employmentStatus sql.NullString
		if err := rows.Scan(&b.ID, &b.ExternalSubject, &b.FirstName, &b.LastName, &b.Email, &b.SSN, &b.DOB, &employmentStatus, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan borrower: %w", err)
		}
		if employmentStatus.Valid {
			es := domain.EmploymentStatus(employmentStatus.String)
			b.EmploymentStatus = &es
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) ListApplicationBorrowers(ctx context.Context, applicationID uuid.UUID) ([]domain.ApplicationBorrower, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, borrower_id, is_primary, created_at
		FROM application_borrowers WHERE application_id = $1`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list application borrowers: %w", err)
	}
	defer rows.Close()

	var out []domain.ApplicationBorrower
	for rows.Next() {
		var ab domain.ApplicationBorrower
		if err := rows.Scan(&ab.ID, &ab.ApplicationID, &ab.BorrowerID, &ab.IsPrimary, &ab.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan application borrower: %w", err)
		}
		out = append(out, ab)
	}
	return out, rows.Err()
}

// RemoveBorrowerFromApplication deletes the link row. The caller (service
// layer) must reject the removal first if borrowerID is the sole or
// primary borrower — spec.md §6.1's 400 on that case is a business rule,
// not something the delete statement itself can express.
func (r *Repository) RemoveBorrowerFromApplication(ctx context.Context, applicationID, borrowerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM application_borrowers WHERE application_id = $1 AND borrower_id = $2`,
		applicationID, borrowerID)
	if err != nil {
		return fmt.Errorf("remove borrower from application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("borrower not attached to application")
	}
	return nil
}

func (r *Repository) UpsertFinancials(ctx context.Context, f domain.ApplicationFinancials) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO application_financials
			(id, application_id, borrower_id, gross_monthly_income, monthly_debts, total_assets, credit_score, dti_ratio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (application_id, borrower_id) DO UPDATE SET
			gross_monthly_income = EXCLUDED.gross_monthly_income,
			monthly_debts        = EXCLUDED.monthly_debts,
			total_assets         = EXCLUDED.total_assets,
			credit_score         = EXCLUDED.credit_score,
			dti_ratio            = EXCLUDED.dti_ratio,
			updated_at           = now()`,
		uuid.New(), f.ApplicationID, f.BorrowerID, f.GrossMonthlyIncome, f.MonthlyDebts, f.TotalAssets, f.CreditScore, f.DTIRatio)
	if err != nil {
		return fmt.Errorf("upsert financials: %w", err)
	}
	return nil
}

func (r *Repository) ListFinancials(ctx context.Context, applicationID uuid.UUID) ([]domain.ApplicationFinancials, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, borrower_id, gross_monthly_income, monthly_debts, total_assets, credit_score, dti_ratio, updated_at
		FROM application_financials WHERE application_id = $1`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list financials: %w", err)
	}
	defer rows.Close()

	var out []domain.ApplicationFinancials
	for rows.Next() {
		var f domain.ApplicationFinancials
		if err := rows.Scan(&f.ID, &f.ApplicationID, &f.BorrowerID, &f.GrossMonthlyIncome, &f.MonthlyDebts, &f.TotalAssets, &f.CreditScore, &f.DTIRatio, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan financials: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) CreateDecision(ctx context.Context, d domain.Decision) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO decisions
			(id, application_id, decision_type, rationale, ai_recommendation, ai_agreement,
			 override_rationale, denial_reasons, credit_score_used, credit_score_source, contributing_factors, decided_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, d.ApplicationID, d.DecisionType, d.Rationale, d.AIRecommendation, d.AIAgreement,
		d.OverrideRationale, pq.Array(d.DenialReasons), d.CreditScoreUsed, d.CreditScoreSource, pq.Array(d.ContributingFactors), d.DecidedBy)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create decision: %w", err)
	}
	return id, nil
}

// ---- conditions ----

func (r *Repository) CreateCondition(ctx context.Context, c domain.Condition) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conditions (id, application_id, description, severity, status, due_date, issued_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, c.ApplicationID, c.Description, c.Severity, domain.ConditionOpen, c.DueDate, c.IssuedBy)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create condition: %w", err)
	}
	return id, nil
}

// GetCondition fetches a single condition by ID, needed by the respond
// endpoint to load the current state before validating the transition.
func (r *Repository) GetCondition(ctx context.Context, id uuid.UUID) (*domain.Condition, error) {
	var c domain.Condition
	err := r.db.QueryRowContext(ctx, `
		SELECT id, application_id, description, severity, status, due_date, iteration_count,
		       response_text, waiver_rationale, issued_by, cleared_by, created_at, updated_at
		FROM conditions WHERE id = $1`, id).Scan(
		&c.ID, &c.ApplicationID, &c.Description, &c.Severity, &c.Status, &c.DueDate, &c.IterationCount,
		&c.ResponseText, &c.WaiverRationale, &c.IssuedBy, &c.ClearedBy, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("condition not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get condition: %w", err)
	}
	return &c, nil
}

func (r *Repository) ListConditions(ctx context.Context, applicationID uuid.UUID) ([]domain.Condition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, description, severity, status, due_date, iteration_count,
		       response_text, waiver_rationale, issued_by, cleared_by, created_at, updated_at
		FROM conditions WHERE application_id = $1 ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	var out []domain.Condition
	for rows.Next() {
		var c domain.Condition
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.Description, &c.Severity, &c.Status, &c.DueDate, &c.IterationCount,
			&c.ResponseText, &c.WaiverRationale, &c.IssuedBy, &c.ClearedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConditionStatus persists a state-machine transition already
// validated by internal/conditions.Transition.
func (r *Repository) UpdateConditionStatus(ctx context.Context, id uuid.UUID, status domain.ConditionStatus, iterationDelta int, responseText, waiverRationale, clearedBy *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conditions SET
			status = $1,
			iteration_count = iteration_count + $2,
			response_text = COALESCE($3, response_text),
			waiver_rationale = COALESCE($4, waiver_rationale),
			cleared_by = COALESCE($5, cleared_by),
			updated_at = now()
		WHERE id = $6`,
		status, iterationDelta, responseText, waiverRationale, clearedBy, id)
	if err != nil {
		return fmt.Errorf("update condition status: %w", err)
	}
	return nil
}

// ---- documents.Store implementation (consumed by internal/documents.ExtractionWorker) ----

func (r *Repository) UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE documents SET status = $1, updated_at = now() WHERE id = $2`, status, documentID)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (r *Repository) SaveExtractionFields(ctx context.Context, documentID uuid.UUID, fields []llm.ExtractionField) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, f := range fields {
		var confidence *decimal.Decimal
		if f.Confidence > 0 {
			d := decimal.NewFromFloat(f.Confidence)
			confidence = &d
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_extractions (id, document_id, field_name, field_value, confidence, source_page)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), documentID, f.FieldName, f.FieldValue, confidence, f.SourcePage); err != nil {
			return fmt.Errorf("insert extraction field %q: %w", f.FieldName, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) RecordFreshnessFlag(ctx context.Context, documentID uuid.UUID, flag documents.FreshnessFlag) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET quality_flags = array_append(quality_flags, $1), updated_at = now() WHERE id = $2`,
		string(flag), documentID)
	if err != nil {
		return fmt.Errorf("record freshness flag: %w", err)
	}
	return nil
}

// ---- documents (REST-facing reads/writes beyond the extraction worker's Store boundary) ----

// CreateDocument inserts d, honoring a caller-supplied ID (so the uploader
// can use the same ID for the blob storage key before the row exists) or
// minting one if d.ID is the zero value.
func (r *Repository) CreateDocument(ctx context.Context, d domain.Document) (uuid.UUID, error) {
	id := d.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, application_id, borrower_id, doc_type, status, file_path, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, d.ApplicationID, d.BorrowerID, d.DocType, domain.DocStatusUploaded, d.FilePath, d.UploadedBy)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create document: %w", err)
	}
	return id, nil
}

func (r *Repository) GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var d domain.Document
	err := r.db.QueryRowContext(ctx, `
		SELECT id, application_id, borrower_id, condition_id, doc_type, status, file_path, quality_flags, uploaded_by, created_at, updated_at
		FROM documents WHERE id = $1`, id).Scan(
		&d.ID, &d.ApplicationID, &d.BorrowerID, &d.ConditionID, &d.DocType, &d.Status, &d.FilePath,
		pq.Array(&d.QualityFlags), &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (r *Repository) ListDocuments(ctx context.Context, applicationID uuid.UUID) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, borrower_id, condition_id, doc_type, status, file_path, quality_flags, uploaded_by, created_at, updated_at
		FROM documents WHERE application_id = $1 ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.ApplicationID, &d.BorrowerID, &d.ConditionID, &d.DocType, &d.Status, &d.FilePath,
			pq.Array(&d.QualityFlags), &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- decisions (reads) ----

func (r *Repository) ListDecisions(ctx context.Context, applicationID uuid.UUID) ([]domain.Decision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, decision_type, rationale, ai_recommendation, ai_agreement,
		       override_rationale, denial_reasons, credit_score_used, credit_score_source, contributing_factors, decided_by, created_at
		FROM decisions WHERE application_id = $1 ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) GetDecision(ctx context.Context, id uuid.UUID) (*domain.Decision, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, application_id, decision_type, rationale, ai_recommendation, ai_agreement,
		       override_rationale, denial_reasons, credit_score_used, credit_score_source, contributing_factors, decided_by, created_at
		FROM decisions WHERE id = $1`, id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("decision not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting
// GetDecision and ListDecisions share one scan routine.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (domain.Decision, error) {
	var d domain.Decision
	err := row.Scan(&d.ID, &d.ApplicationID, &d.DecisionType, &d.Rationale, &d.AIRecommendation, &d.AIAgreement,
		&d.OverrideRationale, pq.Array(&d.DenialReasons), &d.CreditScoreUsed, &d.CreditScoreSource, pq.Array(&d.ContributingFactors), &d.DecidedBy, &d.CreatedAt)
	if err != nil {
		return domain.Decision{}, err
	}
	return d, nil
}

// ---- demo-data seeding ----

// SeedDemoData is idempotent on ConfigHash: if a manifest with the same
// hash already exists, seeding is skipped and the prior manifest is
// returned, matching original_source/packages/api/src/schemas/admin.py's
// config_hash reuse guard.
func (r *Repository) SeedDemoData(ctx context.Context, configHash string, seed func(tx *sql.Tx) (domain.DemoDataManifest, error)) (*domain.DemoDataManifest, bool, error) {
	var existing domain.DemoDataManifest
	err := r.db.QueryRowContext(ctx, `
		SELECT config_hash, seeded_at, borrowers, active_applications, historical_loans, hmda_demographics
		FROM demo_data_manifests WHERE config_hash = $1`, configHash).Scan(
		&existing.ConfigHash, &existing.SeededAt, &existing.Borrowers, &existing.ActiveApplications, &existing.HistoricalLoans, &existing.HmdaDemographics)
	if err == nil {
		return &existing, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("check demo manifest: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	manifest, err := seed(tx)
	if err != nil {
		return nil, false, fmt.Errorf("seed demo data: %w", err)
	}
	manifest.ConfigHash = configHash
	manifest.SeededAt = time.Now()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO demo_data_manifests (config_hash, seeded_at, borrowers, active_applications, historical_loans, hmda_demographics)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		manifest.ConfigHash, manifest.SeededAt, manifest.Borrowers, manifest.ActiveApplications, manifest.HistoricalLoans, manifest.HmdaDemographics); err != nil {
		return nil, false, fmt.Errorf("insert demo manifest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return &manifest, true, nil
}
