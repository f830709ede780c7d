package postgres

import (
	"context"
	"errors"
	"fmt"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, conversation_id, sender_type, sender_id, sender_name, content, message_type, client_nonce, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderType,
		&m.SenderID,
		&m.SenderName,
		&m.Content,
		&m.MessageType,
		&m.ClientNonce,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning message: %w", err)
	}
	return &m, nil
}

const insertMessage = `-- name: AppendMessage :one
INSERT INTO messages (id, conversation_id, sender_type, sender_id, sender_name, content, message_type, client_nonce)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (conversation_id, client_nonce) DO NOTHING
RETURNING ` + messageColumns + `;
`

const getMessageByNonce = `-- name: GetMessageByNonce :one
SELECT ` + messageColumns + `
FROM messages
WHERE conversation_id = $1 AND client_nonce = $2;
`

const touchConversation = `-- name: TouchConversation :exec
UPDATE conversations
SET last_message_at = $2, updated_at = now()
WHERE id = $1;
`

// AppendMessage inserts a message and bumps the conversation's
// last_message_at in one transaction. A repeated client nonce returns the
// previously stored message with created=false instead of a duplicate row.
func (s *PostgresStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.Message, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	msg, err := scanMessage(tx.QueryRow(ctx, insertMessage,
		arg.ID,
		arg.ConversationID,
		arg.SenderType,
		arg.SenderID,
		arg.SenderName,
		arg.Content,
		arg.MessageType,
		arg.ClientNonce,
	))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, fmt.Errorf("database error appending message: %w", err)
		}
		// Nonce conflict: the message was appended by an earlier attempt.
		if arg.ClientNonce == nil {
			return nil, false, err
		}
		existing, err := scanMessage(tx.QueryRow(ctx, getMessageByNonce, arg.ConversationID, *arg.ClientNonce))
		if err != nil {
			return nil, false, fmt.Errorf("database error fetching deduplicated message: %w", err)
		}
		return existing, false, nil
	}

	if _, err := tx.Exec(ctx, touchConversation, arg.ConversationID, msg.CreatedAt); err != nil {
		return nil, false, fmt.Errorf("database error touching conversation: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("database error committing message: %w", err)
	}
	return msg, true, nil
}

const listMessages = `-- name: ListMessages :many
SELECT ` + messageColumns + `
FROM messages
WHERE conversation_id = $1
ORDER BY created_at ASC, id ASC
LIMIT $2 OFFSET $3;
`

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, listMessages, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}
