package db

import (
	"context"
	"database/sql"
	"fmt"
)

// WithAuditLock runs fn inside a transaction holding a transaction-scoped
// Postgres advisory lock keyed by lockKey, serializing every audit-chain
// append across the whole fleet of API instances (spec.md §4.3, §9 "the
// hash-chained audit log is appended by a single serial writer"). The lock
// releases automatically on commit or rollback.
func WithAuditLock(ctx context.Context, db *sql.DB, lockKey int64, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin audit tx: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		return fmt.Errorf("db: acquire audit advisory lock: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit audit tx: %w", err)
	}
	return nil
}
