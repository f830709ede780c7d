package postgres

import (
	"context"
	"errors"
	"fmt"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

const createLead = `-- name: CreateLead :one
INSERT INTO leads (id, conversation_id, event_type, location, name, phone, email, lead_source, contact_method, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, conversation_id, event_type, location, name, phone, email, lead_source, contact_method, message, created_at;
`

func (s *PostgresStore) CreateLead(ctx context.Context, arg store.CreateLeadParams) (*models.Lead, error) {
	row := s.db.QueryRow(ctx, createLead,
		arg.ID,
		arg.ConversationID,
		arg.EventType,
		arg.Location,
		arg.Name,
		arg.Phone,
		arg.Email,
		arg.LeadSource,
		arg.ContactMethod,
		arg.Message,
	)
	var l models.Lead
	err := row.Scan(
		&l.ID,
		&l.ConversationID,
		&l.EventType,
		&l.Location,
		&l.Name,
		&l.Phone,
		&l.Email,
		&l.LeadSource,
		&l.ContactMethod,
		&l.Message,
		&l.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Error().Str("code", pgErr.Code).Str("detail", pgErr.Detail).Msg("postgres: create lead failed")
		}
		return nil, fmt.Errorf("database error creating lead: %w", err)
	}
	return &l, nil
}

// --- Agent methods ---

const getAgentByEmail = `-- name: GetAgentByEmail :one
SELECT id, email, name, hashed_password, created_at, updated_at
FROM agents
WHERE email = $1;
`

func (s *PostgresStore) GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error) {
	var a models.Agent
	err := s.db.QueryRow(ctx, getAgentByEmail, email).Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.HashedPassword,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching agent by email: %w", err)
	}
	return &a, nil
}

const createAgent = `-- name: CreateAgent :exec
INSERT INTO agents (id, email, name, hashed_password)
VALUES ($1, $2, $3, $4);
`

func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	_, err := s.db.Exec(ctx, createAgent, agent.ID, agent.Email, agent.Name, agent.HashedPassword)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Error().Str("code", pgErr.Code).Str("email", agent.Email).Msg("postgres: create agent failed")
		}
		return fmt.Errorf("database error creating agent: %w", err)
	}
	return nil
}
