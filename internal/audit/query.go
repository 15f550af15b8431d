package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/domain"
)

// QueryFilter narrows an audit_events read. Limit of 0 means unbounded
// (used by Export).
type QueryFilter struct {
	ApplicationID *uuid.UUID
	EventType     string
	SessionID     string
	Since         *time.Time
	Limit         int
}

// Query returns events matching filter in ascending id order, plus the
// total row count the filter would match (for pagination).
func (c *Chain) Query(ctx context.Context, filter QueryFilter) ([]domain.AuditEvent, int, error) {
	where := []string{"true"}
	args := []interface{}{}
	argN := 1

	if filter.ApplicationID != nil {
		where = append(where, fmt.Sprintf("application_id = $%d", argN))
		args = append(args, *filter.ApplicationID)
		argN++
	}
	if filter.EventType != "" {
		where = append(where, fmt.Sprintf("event_type = $%d", argN))
		args = append(args, filter.EventType)
		argN++
	}
	if filter.Since != nil {
		where = append(where, fmt.Sprintf("ts >= $%d", argN))
		args = append(args, *filter.Since)
		argN++
	}
	if filter.SessionID != "" {
		where = append(where, fmt.Sprintf("session_id = $%d", argN))
		args = append(args, filter.SessionID)
		argN++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT count(*) FROM audit_events WHERE %s", whereClause)
	if err := c.pool.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count: %w", err)
	}

	query := fmt.Sprintf("SELECT id, ts, prev_hash, user_id, user_role, event_type, application_id, decision_id, event_data, session_id FROM audit_events WHERE %s ORDER BY id ASC", whereClause)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := c.pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		var eventDataJSON []byte
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.PrevHash, &ev.UserID, &ev.UserRole, &ev.EventType, &ev.ApplicationID, &ev.DecisionID, &eventDataJSON, &ev.SessionID); err != nil {
			return nil, 0, fmt.Errorf("audit: scan: %w", err)
		}
		if len(eventDataJSON) > 0 {
			if err := json.Unmarshal(eventDataJSON, &ev.EventData); err != nil {
				return nil, 0, fmt.Errorf("audit: unmarshal event_data: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
