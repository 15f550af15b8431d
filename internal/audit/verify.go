package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VerifyResult reports the outcome of walking the chain from genesis.
type VerifyResult struct {
	TotalEvents  int
	Valid        bool
	BrokenAtID   int64 // 0 if Valid
	BrokenReason string
}

// Verify walks every audit_events row in id order, recomputing each row's
// canonical hash from its own fields (there is no stored hash column) and
// confirming the NEXT row's prev_hash matches it. A row edited in place —
// bypassing the append-only trigger via a restored backup, or an attacker
// with superuser access rewriting history — no longer matches the hash the
// following row committed to, so the break surfaces at that following row,
// not at the tampered row itself.
func (c *Chain) Verify(ctx context.Context) (*VerifyResult, error) {
	start := time.Now()
	rows, err := c.pool.QueryContext(ctx, `
		SELECT id, ts, prev_hash, user_id, user_role, event_type, application_id, decision_id, event_data, session_id
		FROM audit_events ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("audit: query chain: %w", err)
	}
	defer rows.Close()

	result := &VerifyResult{Valid: true}
	var expectedHash string
	haveExpected := false

	for rows.Next() {
		var (
			id                        int64
			ts                        time.Time
			prevHash, eventType       string
			userID, userRole          *string
			applicationID, decisionID *uuid.UUID
			eventDataJSON             []byte
			sessionID                 *string
		)
		if err := rows.Scan(&id, &ts, &prevHash, &userID, &userRole, &eventType, &applicationID, &decisionID, &eventDataJSON, &sessionID); err != nil {
			return nil, fmt.Errorf("audit: scan row: %w", err)
		}
		result.TotalEvents++

		if haveExpected && prevHash != expectedHash {
			result.Valid = false
			result.BrokenAtID = id
			result.BrokenReason = "prev_hash does not match the preceding row's recomputed hash"
			break
		}

		expectedHash = computeHash(id, ts, eventType, userID, userRole, applicationID, sessionID, eventDataJSON)
		haveExpected = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordAuditVerify(time.Since(start).Seconds(), !result.Valid)
	}
	return result, nil
}

// Export streams every event as a JSON array, the shape an external
// auditor or regulator request (spec.md §4.9) would be handed.
func (c *Chain) Export(ctx context.Context) ([]byte, error) {
	events, _, err := c.Query(ctx, QueryFilter{Limit: 0})
	if err != nil {
		return nil, err
	}
	return json.Marshal(events)
}
