// Package domain holds the entities and enums of the mortgage-origination
// lifecycle: Borrower, Application, Document, Condition, Decision, audit and
// HMDA records. Types are plain structs; persistence and invariant
// enforcement live in the service packages that operate on them.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplicationStage string

const (
	StageInquiry              ApplicationStage = "inquiry"
	StagePrequalification     ApplicationStage = "prequalification"
	StageApplication          ApplicationStage = "application"
	StageProcessing           ApplicationStage = "processing"
	StageUnderwriting         ApplicationStage = "underwriting"
	StageConditionalApproval  ApplicationStage = "conditional_approval"
	StageClearToClose         ApplicationStage = "clear_to_close"
	StageClosed               ApplicationStage = "closed"
	StageDenied               ApplicationStage = "denied"
	StageWithdrawn            ApplicationStage = "withdrawn"
)

// TerminalStages are stages that accept no further lifecycle writes other
// than audit events. clear_to_close is deliberately excluded — see
// spec.md §9 Open Questions and DESIGN.md.
var TerminalStages = map[ApplicationStage]bool{
	StageClosed:    true,
	StageDenied:    true,
	StageWithdrawn: true,
}

func (s ApplicationStage) Terminal() bool { return TerminalStages[s] }

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCEO         Role = "ceo"
	RoleUnderwriter Role = "underwriter"
	RoleLoanOfficer Role = "loan_officer"
	RoleBorrower    Role = "borrower"
	RoleProspect    Role = "prospect"
)

// RolePrecedence orders realm roles from most to least privileged; used to
// pick a single domain role out of a token's realm_access.roles list.
var RolePrecedence = []Role{RoleAdmin, RoleCEO, RoleUnderwriter, RoleLoanOfficer, RoleBorrower, RoleProspect}

type LoanType string

const (
	LoanConventional30 LoanType = "conventional_30"
	LoanConventional15 LoanType = "conventional_15"
	LoanFHA            LoanType = "fha"
	LoanVA             LoanType = "va"
	LoanJumbo          LoanType = "jumbo"
	LoanUSDA           LoanType = "usda"
)

// LoanTypeAliases maps loose user input to the canonical enum value.
var LoanTypeAliases = map[string]LoanType{
	"conventional": LoanConventional30,
	"conventional_30": LoanConventional30,
	"conventional_15": LoanConventional15,
	"fha":  LoanFHA,
	"va":   LoanVA,
	"jumbo": LoanJumbo,
	"usda": LoanUSDA,
}

type EmploymentStatus string

const (
	EmploymentW2           EmploymentStatus = "w2_employee"
	EmploymentSelfEmployed EmploymentStatus = "self_employed"
	EmploymentRetired      EmploymentStatus = "retired"
	EmploymentUnemployed   EmploymentStatus = "unemployed"
	EmploymentOther        EmploymentStatus = "other"
)

// EmploymentStatusAliases maps loose user input (including "w2", "1099") to
// the canonical enum value.
var EmploymentStatusAliases = map[string]EmploymentStatus{
	"w2":             EmploymentW2,
	"w2_employee":    EmploymentW2,
	"1099":           EmploymentSelfEmployed,
	"self_employed":  EmploymentSelfEmployed,
	"retired":        EmploymentRetired,
	"unemployed":     EmploymentUnemployed,
	"other":          EmploymentOther,
}

type DocumentType string

const (
	DocW2                DocumentType = "w2"
	DocPayStub           DocumentType = "pay_stub"
	DocTaxReturn         DocumentType = "tax_return"
	DocBankStatement     DocumentType = "bank_statement"
	DocID                DocumentType = "id"
	DocPropertyAppraisal DocumentType = "property_appraisal"
	DocInsurance         DocumentType = "insurance"
	DocOther             DocumentType = "other"
)

type DocumentStatus string

const (
	DocStatusUploaded              DocumentStatus = "uploaded"
	DocStatusProcessing            DocumentStatus = "processing"
	DocStatusProcessingComplete    DocumentStatus = "processing_complete"
	DocStatusProcessingFailed      DocumentStatus = "processing_failed"
	DocStatusPendingReview         DocumentStatus = "pending_review"
	DocStatusAccepted              DocumentStatus = "accepted"
	DocStatusFlaggedForResubmission DocumentStatus = "flagged_for_resubmission"
	DocStatusRejected              DocumentStatus = "rejected"
)

type ConditionSeverity string

const (
	SeverityPriorToApproval ConditionSeverity = "prior_to_approval"
	SeverityPriorToDocs     ConditionSeverity = "prior_to_docs"
	SeverityPriorToClosing  ConditionSeverity = "prior_to_closing"
	SeverityPriorToFunding  ConditionSeverity = "prior_to_funding"
)

// WaivableSeverities are the severities a condition may be waived from.
var WaivableSeverities = map[ConditionSeverity]bool{
	SeverityPriorToClosing: true,
	SeverityPriorToFunding: true,
}

type ConditionStatus string

const (
	ConditionOpen        ConditionStatus = "open"
	ConditionResponded   ConditionStatus = "responded"
	ConditionUnderReview ConditionStatus = "under_review"
	ConditionCleared     ConditionStatus = "cleared"
	ConditionWaived      ConditionStatus = "waived"
	ConditionEscalated   ConditionStatus = "escalated"
)

var ConditionTerminalStatuses = map[ConditionStatus]bool{
	ConditionCleared:   true,
	ConditionWaived:    true,
	ConditionEscalated: true,
}

func (s ConditionStatus) Terminal() bool { return ConditionTerminalStatuses[s] }

type DecisionType string

const (
	DecisionApproved             DecisionType = "approved"
	DecisionConditionalApproval  DecisionType = "conditional_approval"
	DecisionSuspended            DecisionType = "suspended"
	DecisionDenied               DecisionType = "denied"
)

type ComplianceStatus string

const (
	CompliancePass             ComplianceStatus = "PASS"
	ComplianceConditionalPass  ComplianceStatus = "CONDITIONAL_PASS"
	ComplianceWarning          ComplianceStatus = "WARNING"
	ComplianceFail             ComplianceStatus = "FAIL"
	ComplianceNA               ComplianceStatus = "N/A"
)

// complianceSeverity ranks statuses worst-first for the combined runner.
var complianceSeverity = map[ComplianceStatus]int{
	ComplianceFail:            0,
	ComplianceWarning:         1,
	ComplianceConditionalPass: 2,
	CompliancePass:            3,
	ComplianceNA:              3,
}

// WorstComplianceStatus returns the most severe of the two statuses.
func WorstComplianceStatus(a, b ComplianceStatus) ComplianceStatus {
	if complianceSeverity[a] <= complianceSeverity[b] {
		return a
	}
	return b
}

type HmdaMethod string

const (
	MethodSelfReported      HmdaMethod = "self_reported"
	MethodDocumentExtraction HmdaMethod = "document_extraction"
	MethodVisualObservation HmdaMethod = "visual_observation"
	MethodNotProvided       HmdaMethod = "not_provided"
)

// hmdaPrecedence implements the "higher number wins" provenance rule of
// spec.md §4.8.
var hmdaPrecedence = map[HmdaMethod]int{
	MethodVisualObservation:  0,
	MethodDocumentExtraction: 1,
	MethodSelfReported:       2,
	MethodNotProvided:        -1,
}

// HmdaPrecedence returns the precedence rank of a collection method; higher
// wins on conflict.
func HmdaPrecedence(m HmdaMethod) int { return hmdaPrecedence[m] }

// ---- entities ----

type Borrower struct {
	ID               uuid.UUID
	ExternalSubject  string
	FirstName        string
	LastName         string
	Email            string
	SSN              *string
	DOB              *time.Time
	EmploymentStatus *EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Application struct {
	ID              uuid.UUID
	Stage           ApplicationStage
	LoanType        *LoanType
	PropertyAddress *string
	LoanAmount      *decimal.Decimal
	PropertyValue   *decimal.Decimal
	AssignedTo      *string
	LeDeliveryDate  *time.Time
	CdDeliveryDate  *time.Time
	ClosingDate     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ApplicationBorrower struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	BorrowerID    uuid.UUID
	IsPrimary     bool
	CreatedAt     time.Time
}

type ApplicationFinancials struct {
	ID                  uuid.UUID
	ApplicationID       uuid.UUID
	BorrowerID          uuid.UUID
	GrossMonthlyIncome  *decimal.Decimal
	MonthlyDebts        *decimal.Decimal
	TotalAssets         *decimal.Decimal
	CreditScore         *int
	DTIRatio            *decimal.Decimal
	UpdatedAt           time.Time
}

type RateLock struct {
	ID             uuid.UUID
	ApplicationID  uuid.UUID
	LockedRate     decimal.Decimal
	LockDate       time.Time
	ExpirationDate time.Time
	IsActive       bool
}

func (r RateLock) Active(now time.Time) bool {
	return r.IsActive && now.Before(r.ExpirationDate)
}

type Document struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	BorrowerID    *uuid.UUID
	ConditionID   *uuid.UUID
	DocType       DocumentType
	Status        DocumentStatus
	FilePath      string
	QualityFlags  []string
	UploadedBy    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DocumentExtraction struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	FieldName  string
	FieldValue string
	Confidence *decimal.Decimal
	SourcePage *int
}

type Condition struct {
	ID               uuid.UUID
	ApplicationID    uuid.UUID
	Description      string
	Severity         ConditionSeverity
	Status           ConditionStatus
	DueDate          *time.Time
	IterationCount   int
	ResponseText     *string
	WaiverRationale  *string
	IssuedBy         string
	ClearedBy        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Decision struct {
	ID                 uuid.UUID
	ApplicationID      uuid.UUID
	DecisionType       DecisionType
	Rationale          string
	AIRecommendation   *string
	AIAgreement        bool
	OverrideRationale  *string
	DenialReasons      []string
	CreditScoreUsed    *int
	CreditScoreSource  *string
	ContributingFactors []string
	DecidedBy          string
	CreatedAt          time.Time
}

type AuditEvent struct {
	ID            int64
	Timestamp     time.Time
	PrevHash      string
	UserID        *string
	UserRole      *string
	EventType     string
	ApplicationID *uuid.UUID
	DecisionID    *uuid.UUID
	EventData     map[string]interface{}
	SessionID     *string
}

type AuditViolation struct {
	ID                 int64
	AttemptedOperation string
	DBUser             string
	AuditEventID       int64
	Timestamp          time.Time
}

type HmdaDemographic struct {
	ApplicationID uuid.UUID
	BorrowerID    uuid.UUID
	Race          *string
	RaceMethod    *HmdaMethod
	Ethnicity     *string
	EthnicityMethod *HmdaMethod
	Sex           *string
	SexMethod     *HmdaMethod
	Age           *int
	AgeMethod     *HmdaMethod
	UpdatedAt     time.Time
}

type HmdaLoanData struct {
	ApplicationID      uuid.UUID
	GrossMonthlyIncome *decimal.Decimal
	DTIRatio           *decimal.Decimal
	CreditScore        *int
	LoanType           *LoanType
	LoanPurpose        *string
	PropertyLocation   *string
	InterestRate       *decimal.Decimal
	TotalFees          *decimal.Decimal
	CapturedAt         time.Time
}

// DemoDataManifest records a seeded demo-data request, keyed by a SHA-256 of
// its canonical request body, so re-seeding with the same config is a no-op.
// Supplemented from original_source/packages/api/src/schemas/admin.py and
// packages/db/src/db/models.py's DemoDataManifest.
type DemoDataManifest struct {
	ConfigHash         string
	SeededAt           time.Time
	Borrowers          int
	ActiveApplications int
	HistoricalLoans    int
	HmdaDemographics   int
}

// ConversationMessage is a single turn in the chat surface, persisted so a
// thread survives a WebSocket reconnect. Supplemented from
// original_source/packages/api/src/schemas/conversation.py.
type ConversationMessage struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	PrincipalID   string
	Role          string // "user" | "assistant"
	Content       string
	CreatedAt     time.Time
}
