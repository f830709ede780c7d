package store

import (
	"context"
	"errors"
	"time"

	"eventchat-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateConversationParams contains parameters for creating a conversation.
type CreateConversationParams struct {
	ID            uuid.UUID
	VisitorID     string
	LastMessageAt time.Time
}

// UpdateConversationFieldsParams carries the intake fields collected by the
// bot flow. Nil pointers are left untouched so the flow can PATCH one field
// per step.
type UpdateConversationFieldsParams struct {
	ID            uuid.UUID
	EventType     *string
	EventDate     *string
	EventLocation *string
	VisitorName   *string
	VisitorPhone  *string
}

// AppendMessageParams contains parameters for appending a message.
type AppendMessageParams struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderType     models.SenderType
	SenderID       string
	SenderName     string
	Content        string
	MessageType    string
	ClientNonce    *string
}

// CreateLeadParams contains parameters for creating a lead. Phone arrives
// as opaque bytes: ciphertext when encryption is configured, plain digits
// otherwise.
type CreateLeadParams struct {
	ID             uuid.UUID
	ConversationID *uuid.UUID
	EventType      string
	Location       string
	Name           string
	Phone          []byte
	Email          string
	LeadSource     string
	ContactMethod  string
	Message        string
}

// Store defines the interface for database operations. This allows for
// mocking in tests and the in-memory development backend.
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	UpdateConversationFields(ctx context.Context, arg UpdateConversationFieldsParams) (*models.Conversation, error)
	// UpdateConversationStatus transitions the persisted status. agentID is
	// only set on the awaiting_agent -> live transition.
	UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus, agentID *uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, status *models.ConversationStatus, limit, offset int) ([]models.Conversation, error)

	// Message operations. AppendMessage also bumps the conversation's
	// last_message_at. The bool reports whether a new row was created;
	// false means the client nonce was already seen and the stored message
	// is returned instead.
	AppendMessage(ctx context.Context, arg AppendMessageParams) (*models.Message, bool, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)

	// Lead operations
	CreateLead(ctx context.Context, arg CreateLeadParams) (*models.Lead, error)

	// Agent operations
	GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error)
	CreateAgent(ctx context.Context, agent *models.Agent) error
}
