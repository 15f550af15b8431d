package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// HASH CHAIN UNIT TESTS
// ============================================================================

func TestComputeHash_DeterministicForIdenticalInput(t *testing.T) {
	ts := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	userID := "user-1"
	role := "loan_officer"
	appID := uuid.New()
	eventData := []byte(`{"stage":"processing"}`)

	h1 := computeHash(1, ts, "stage_transition", &userID, &role, &appID, nil, eventData)
	h2 := computeHash(1, ts, "stage_transition", &userID, &role, &appID, nil, eventData)

	assert.Equal(t, h1, h2, "identical input must hash identically")
	assert.Len(t, h1, 64, "sha256 hex digest is 64 characters")
}

func TestComputeHash_SensitiveToID(t *testing.T) {
	ts := time.Now().UTC()
	h1 := computeHash(1, ts, "note", nil, nil, nil, nil, []byte(`{}`))
	h2 := computeHash(2, ts, "note", nil, nil, nil, nil, []byte(`{}`))

	assert.NotEqual(t, h1, h2, "changing id must change the resulting hash")
}

func TestComputeHash_SensitiveToEventData(t *testing.T) {
	ts := time.Now().UTC()
	h1 := computeHash(1, ts, "note", nil, nil, nil, nil, []byte(`{"a":1}`))
	h2 := computeHash(1, ts, "note", nil, nil, nil, nil, []byte(`{"a":2}`))

	assert.NotEqual(t, h1, h2, "tampering with event_data must change the resulting hash")
}

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a := canonicalJSON([]byte(`{"b":2,"a":1,"c":{"z":9,"y":8}}`))
	b := canonicalJSON([]byte(`{"a":1,"c":{"y":8,"z":9},"b":2}`))

	assert.Equal(t, string(a), string(b), "key order must not affect the canonical form used for hashing")
}

func TestComputeHash_OrderIndependentEventDataHashesEqual(t *testing.T) {
	ts := time.Now().UTC()
	h1 := computeHash(1, ts, "note", nil, nil, nil, nil, canonicalJSON([]byte(`{"b":2,"a":1}`)))
	h2 := computeHash(1, ts, "note", nil, nil, nil, nil, canonicalJSON([]byte(`{"a":1,"b":2}`)))

	require.Equal(t, h1, h2, "logically identical event_data must hash the same regardless of source key order")
}
