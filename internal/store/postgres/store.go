package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const conversationColumns = `id, visitor_id, status, event_type, event_date, event_location, visitor_name, visitor_phone, assigned_agent_id, last_message_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(
		&c.ID,
		&c.VisitorID,
		&c.Status,
		&c.EventType,
		&c.EventDate,
		&c.EventLocation,
		&c.VisitorName,
		&c.VisitorPhone,
		&c.AssignedAgentID,
		&c.LastMessageAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning conversation: %w", err)
	}
	return &c, nil
}

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (id, visitor_id, status, last_message_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + conversationColumns + `;
`

func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	lastMessageAt := arg.LastMessageAt
	if lastMessageAt.IsZero() {
		lastMessageAt = time.Now().UTC()
	}
	row := s.db.QueryRow(ctx, createConversation, arg.ID, arg.VisitorID, models.StatusBot, lastMessageAt)
	conv, err := scanConversation(row)
	if err != nil {
		log.Error().Err(err).Str("visitor_id", arg.VisitorID).Msg("postgres: create conversation failed")
		return nil, fmt.Errorf("database error creating conversation: %w", err)
	}
	return conv, nil
}

const getConversationByID = `-- name: GetConversationByID :one
SELECT ` + conversationColumns + `
FROM conversations
WHERE id = $1;
`

func (s *PostgresStore) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return scanConversation(s.db.QueryRow(ctx, getConversationByID, id))
}

// UpdateConversationFields builds a partial SET clause from the non-nil
// intake fields.
func (s *PostgresStore) UpdateConversationFields(ctx context.Context, arg store.UpdateConversationFieldsParams) (*models.Conversation, error) {
	set := make([]string, 0, 6)
	args := []interface{}{arg.ID}

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("event_type", arg.EventType)
	add("event_date", arg.EventDate)
	add("event_location", arg.EventLocation)
	add("visitor_name", arg.VisitorName)
	add("visitor_phone", arg.VisitorPhone)

	if len(set) == 0 {
		return s.GetConversationByID(ctx, arg.ID)
	}
	set = append(set, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE conversations SET %s WHERE id = $1 RETURNING %s;`,
		strings.Join(set, ", "), conversationColumns)
	return scanConversation(s.db.QueryRow(ctx, query, args...))
}

const updateConversationStatus = `-- name: UpdateConversationStatus :one
UPDATE conversations
SET status = $2,
    assigned_agent_id = COALESCE($3, assigned_agent_id),
    updated_at = now()
WHERE id = $1
RETURNING ` + conversationColumns + `;
`

func (s *PostgresStore) UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus, agentID *uuid.UUID) (*models.Conversation, error) {
	return scanConversation(s.db.QueryRow(ctx, updateConversationStatus, id, status, agentID))
}

const listConversations = `-- name: ListConversations :many
SELECT ` + conversationColumns + `
FROM conversations
WHERE ($1::text IS NULL OR status = $1)
ORDER BY last_message_at DESC
LIMIT $2 OFFSET $3;
`

func (s *PostgresStore) ListConversations(ctx context.Context, status *models.ConversationStatus, limit, offset int) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, listConversations, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}
