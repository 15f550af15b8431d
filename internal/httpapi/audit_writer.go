package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/audit"
	"github.com/originpoint/backend/internal/authscope"
)

// appendAudit writes a hash-chained audit event for a mutating request,
// grounded on spec.md §4.3/§7's "every state change writes an audit event,
// including on error" rule. It never fails the request: a logging failure
// here must not roll back a decision or stage change that already
// committed, so append errors are logged and swallowed. s.chain is nil in
// handler unit tests that construct *Server directly, so this is a no-op
// there rather than a panic.
func (s *Server) appendAudit(ctx context.Context, principal authscope.Principal, applicationID *uuid.UUID, decisionID *uuid.UUID, eventType string, data map[string]interface{}) {
	if s.chain == nil {
		return
	}
	subject := principal.Subject
	role := string(principal.Role)
	if _, err := s.chain.Append(ctx, audit.Event{
		UserID:        &subject,
		UserRole:      &role,
		EventType:     eventType,
		ApplicationID: applicationID,
		DecisionID:    decisionID,
		EventData:     data,
	}); err != nil && s.logger != nil {
		s.logger.Error("audit append failed", "event_type", eventType, "error", err)
	}
}

// appendAuditError records a failed mutation attempt (e.g. a rejected
// decision) against the application so the audit trail shows the attempt,
// not just eventual successes, per spec.md §7.
func (s *Server) appendAuditError(ctx context.Context, principal authscope.Principal, applicationID uuid.UUID, eventType, reason string) {
	s.appendAudit(ctx, principal, &applicationID, nil, eventType, map[string]interface{}{"error": reason})
}
