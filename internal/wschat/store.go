package wschat

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/originpoint/backend/internal/domain"
)

// Store persists conversation turns, scoped to the lending_app role
// connection the way the rest of internal/appsvc's tables are — the chat
// surface talks to applications and borrowers, not the hmda schema.
type Store interface {
	SaveMessage(ctx context.Context, msg domain.ConversationMessage) error
	ListMessages(ctx context.Context, applicationID uuid.UUID) ([]domain.ConversationMessage, error)
}

// Repository is the database/sql-backed Store, grounded on
// internal/appsvc/repository.go's direct query style.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveMessage(ctx context.Context, msg domain.ConversationMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, application_id, principal_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ApplicationID, msg.PrincipalID, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("wschat: save message: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, applicationID uuid.UUID) ([]domain.ConversationMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, principal_id, role, content, created_at
		FROM conversation_messages
		WHERE application_id = $1
		ORDER BY created_at ASC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("wschat: list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		if err := rows.Scan(&m.ID, &m.ApplicationID, &m.PrincipalID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("wschat: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("wschat: list messages: %w", err)
	}
	return out, nil
}
