// Package audit implements the tamper-evident, hash-chained audit log of
// spec.md §4.3: every event stores, as prev_hash, the SHA-256 of its
// predecessor's own fields, so altering a row breaks the link stored in the
// row that follows it.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/db"
	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/obs"
)

// Chain appends to and verifies the audit_events hash chain. Writes are
// serialized through db.WithAuditLock so that under concurrent callers
// "read last hash, compute next hash, insert" is never interleaved across
// two writers (spec.md §9: "a single serial writer").
type Chain struct {
	pool    *sql.DB
	lockKey int64
	metrics *obs.Metrics
}

func NewChain(pool *sql.DB, lockKey int64, metrics *obs.Metrics) *Chain {
	return &Chain{pool: pool, lockKey: lockKey, metrics: metrics}
}

// Event is the caller-supplied payload for Append; PrevHash, ID, and
// Timestamp are computed/assigned by the chain itself. DecisionID rides
// along as an informational column — spec.md §4.3 invariant 3 does not
// include it in the hashed canonical form.
type Event struct {
	UserID        *string
	UserRole      *string
	EventType     string
	ApplicationID *uuid.UUID
	DecisionID    *uuid.UUID
	EventData     map[string]interface{}
	SessionID     *string
}

// previousRow is the full set of fields of the current chain tip, read back
// so Append can recompute its canonical hash — there is no stored hash
// column to read instead (spec.md §4.3 invariant 3).
type previousRow struct {
	id            int64
	ts            time.Time
	eventType     string
	userID        *string
	userRole      *string
	applicationID *uuid.UUID
	sessionID     *string
	eventDataJSON []byte
}

// Append writes one event, chaining it to the current tip. Returns the
// persisted domain.AuditEvent with its computed prev_hash.
func (c *Chain) Append(ctx context.Context, ev Event) (*domain.AuditEvent, error) {
	var appended *domain.AuditEvent

	err := db.WithAuditLock(ctx, c.pool, c.lockKey, func(tx *sql.Tx) error {
		var prev previousRow
		row := tx.QueryRowContext(ctx, `
			SELECT id, ts, event_type, user_id, user_role, application_id, session_id, event_data
			FROM audit_events ORDER BY id DESC LIMIT 1`)
		if err := row.Scan(&prev.id, &prev.ts, &prev.eventType, &prev.userID, &prev.userRole, &prev.applicationID, &prev.sessionID, &prev.eventDataJSON); err != nil {
			return fmt.Errorf("audit: read chain tip: %w", err)
		}
		prevHash := computeHash(prev.id, prev.ts, prev.eventType, prev.userID, prev.userRole, prev.applicationID, prev.sessionID, prev.eventDataJSON)

		ts := time.Now().UTC()
		eventDataJSON, err := json.Marshal(ev.EventData)
		if err != nil {
			return fmt.Errorf("audit: marshal event data: %w", err)
		}

		var id int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO audit_events (ts, prev_hash, user_id, user_role, event_type, application_id, decision_id, event_data, session_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, ts, prevHash, ev.UserID, ev.UserRole, ev.EventType, ev.ApplicationID, ev.DecisionID, eventDataJSON, ev.SessionID).Scan(&id)
		if err != nil {
			return fmt.Errorf("audit: insert event: %w", err)
		}

		appended = &domain.AuditEvent{
			ID:            id,
			Timestamp:     ts,
			PrevHash:      prevHash,
			UserID:        ev.UserID,
			UserRole:      ev.UserRole,
			EventType:     ev.EventType,
			ApplicationID: ev.ApplicationID,
			DecisionID:    ev.DecisionID,
			EventData:     ev.EventData,
			SessionID:     ev.SessionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordAuditAppend(ev.EventType)
	}
	return appended, nil
}

// computeHash canonically serializes one audit_events row's own fields —
// id | timestamp | event_type | user_id | user_role | application_id |
// session_id | event_data, per spec.md §4.3 invariant 3 — and returns the
// hex SHA-256 digest. A row's hash becomes the next row's stored prev_hash;
// there is no persisted hash column, and decision_id is deliberately not
// part of the canonical form. Map keys are sorted before serialization so
// the same logical event always hashes identically regardless of Go's
// randomized map iteration order.
func computeHash(id int64, ts time.Time, eventType string, userID, userRole *string, applicationID *uuid.UUID, sessionID *string, eventDataJSON []byte) string {
	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("%d", id)))
	h.Write([]byte(ts.Format(time.RFC3339Nano)))
	h.Write([]byte(eventType))
	h.Write([]byte(deref(userID)))
	h.Write([]byte(deref(userRole)))
	h.Write([]byte(derefUUID(applicationID)))
	h.Write([]byte(deref(sessionID)))
	h.Write(canonicalJSON(eventDataJSON))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON re-marshals arbitrary JSON with sorted object keys so hash
// computation is independent of the original key order.
func canonicalJSON(raw []byte) []byte {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(sortedValue(v))
	if err != nil {
		return raw
	}
	return out
}

func sortedValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(t))
		for _, k := range keys {
			ordered[k] = sortedValue(t[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return t
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefUUID(u *uuid.UUID) string {
	if u == nil {
		return ""
	}
	return u.String()
}
