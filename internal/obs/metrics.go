// Package obs holds the Prometheus metrics surface for the origination
// backend, mirroring the teacher's promauto.NewXVec construction pattern.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the origination service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application lifecycle metrics
	ApplicationStageTransitions *prometheus.CounterVec
	ApplicationsByStage         *prometheus.GaugeVec

	// Audit log metrics
	AuditEventsAppended  *prometheus.CounterVec
	AuditChainVerifyTime *prometheus.HistogramVec
	AuditChainBroken     *prometheus.GaugeVec

	// Document ingestion metrics
	DocumentUploads       *prometheus.CounterVec
	DocumentExtractions   *prometheus.CounterVec
	ExtractionDuration    *prometheus.HistogramVec
	DocumentFreshnessFail *prometheus.CounterVec

	// Compliance engine metrics
	ComplianceChecks      *prometheus.CounterVec
	ComplianceCheckResult *prometheus.CounterVec

	// Condition lifecycle metrics
	ConditionTransitions *prometheus.CounterVec
	ConditionsOpen       *prometheus.GaugeVec

	// Chat / WebSocket metrics
	ChatConnectionsActive *prometheus.GaugeVec
	ChatMessagesTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "originpoint_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),

		ApplicationStageTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_application_stage_transitions_total",
				Help: "Total number of application stage transitions",
			},
			[]string{"from_stage", "to_stage"},
		),

		ApplicationsByStage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "originpoint_applications_by_stage",
				Help: "Current count of applications in each stage",
			},
			[]string{"stage"},
		),

		AuditEventsAppended: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_audit_events_appended_total",
				Help: "Total number of audit events appended to the hash chain",
			},
			[]string{"event_type"},
		),

		AuditChainVerifyTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "originpoint_audit_chain_verify_duration_seconds",
				Help:    "Duration of audit chain integrity verification",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{},
		),

		AuditChainBroken: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "originpoint_audit_chain_broken",
				Help: "1 if the last verification found a broken hash link, 0 otherwise",
			},
			[]string{},
		),

		DocumentUploads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_document_uploads_total",
				Help: "Total number of documents uploaded",
			},
			[]string{"document_type"},
		),

		DocumentExtractions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_document_extractions_total",
				Help: "Total number of document extraction attempts",
			},
			[]string{"document_type", "status"}, // status: succeeded, failed
		),

		ExtractionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "originpoint_extraction_duration_seconds",
				Help:    "Duration of document field extraction",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"document_type"},
		),

		DocumentFreshnessFail: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_document_freshness_failures_total",
				Help: "Total number of documents flagged by the freshness check",
			},
			[]string{"document_type", "reason"}, // reason: future_date, wrong_period
		),

		ComplianceChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_compliance_checks_total",
				Help: "Total number of compliance rule evaluations",
			},
			[]string{"rule"}, // ecoa, atr_qm, trid
		),

		ComplianceCheckResult: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_compliance_check_result_total",
				Help: "Compliance check results by final status",
			},
			[]string{"rule", "status"}, // status: pass, warning, conditional_pass, fail
		),

		ConditionTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_condition_transitions_total",
				Help: "Total number of underwriting condition state transitions",
			},
			[]string{"from_status", "to_status"},
		),

		ConditionsOpen: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "originpoint_conditions_open",
				Help: "Current count of non-terminal underwriting conditions",
			},
			[]string{"severity"},
		),

		ChatConnectionsActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "originpoint_chat_connections_active",
				Help: "Current count of active chat WebSocket connections",
			},
			[]string{"role"},
		),

		ChatMessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "originpoint_chat_messages_total",
				Help: "Total number of chat messages sent",
			},
			[]string{"role", "direction"}, // direction: inbound, outbound
		),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

// RecordStageTransition records an application moving between lifecycle stages.
func (m *Metrics) RecordStageTransition(from, to string) {
	m.ApplicationStageTransitions.WithLabelValues(from, to).Inc()
}

// SetApplicationsByStage sets the current gauge for a stage's application count.
func (m *Metrics) SetApplicationsByStage(stage string, count float64) {
	m.ApplicationsByStage.WithLabelValues(stage).Set(count)
}

// RecordAuditAppend records one audit event appended to the chain.
func (m *Metrics) RecordAuditAppend(eventType string) {
	m.AuditEventsAppended.WithLabelValues(eventType).Inc()
}

// RecordAuditVerify records a chain-verification pass's duration and result.
func (m *Metrics) RecordAuditVerify(durationSeconds float64, broken bool) {
	m.AuditChainVerifyTime.WithLabelValues().Observe(durationSeconds)
	val := 0.0
	if broken {
		val = 1.0
	}
	m.AuditChainBroken.WithLabelValues().Set(val)
}

// RecordDocumentUpload records an uploaded document.
func (m *Metrics) RecordDocumentUpload(documentType string) {
	m.DocumentUploads.WithLabelValues(documentType).Inc()
}

// RecordExtraction records an extraction attempt's outcome and duration.
func (m *Metrics) RecordExtraction(documentType string, succeeded bool, durationSeconds float64) {
	status := "succeeded"
	if !succeeded {
		status = "failed"
	}
	m.DocumentExtractions.WithLabelValues(documentType, status).Inc()
	m.ExtractionDuration.WithLabelValues(documentType).Observe(durationSeconds)
}

// RecordFreshnessFailure records a document flagged by the freshness check.
func (m *Metrics) RecordFreshnessFailure(documentType, reason string) {
	m.DocumentFreshnessFail.WithLabelValues(documentType, reason).Inc()
}

// RecordComplianceCheck records one rule evaluation and its result status.
func (m *Metrics) RecordComplianceCheck(rule, status string) {
	m.ComplianceChecks.WithLabelValues(rule).Inc()
	m.ComplianceCheckResult.WithLabelValues(rule, status).Inc()
}

// RecordConditionTransition records an underwriting condition state change.
func (m *Metrics) RecordConditionTransition(from, to string) {
	m.ConditionTransitions.WithLabelValues(from, to).Inc()
}

// SetConditionsOpen sets the current gauge for open conditions of a severity.
func (m *Metrics) SetConditionsOpen(severity string, count float64) {
	m.ConditionsOpen.WithLabelValues(severity).Set(count)
}

// UpdateChatConnections sets the active connection gauge for a role.
func (m *Metrics) UpdateChatConnections(role string, count float64) {
	m.ChatConnectionsActive.WithLabelValues(role).Set(count)
}

// RecordChatMessage records one chat message in a given direction.
func (m *Metrics) RecordChatMessage(role, direction string) {
	m.ChatMessagesTotal.WithLabelValues(role, direction).Inc()
}
