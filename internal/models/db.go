package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the persisted lifecycle phase of a conversation.
// The widget derives its local behavior from it, and the admin console
// filters its queue on it.
type ConversationStatus string

const (
	StatusBot           ConversationStatus = "bot"
	StatusAwaitingAgent ConversationStatus = "awaiting_agent"
	StatusLive          ConversationStatus = "live"
	StatusClosed        ConversationStatus = "closed"
)

// SenderType identifies who authored a message or typing event.
type SenderType string

const (
	SenderSystem  SenderType = "system"
	SenderVisitor SenderType = "visitor"
	SenderAdmin   SenderType = "admin"
)

// MessageTypeText is the only message variant currently supported.
const MessageTypeText = "text"

// Conversation represents a chat conversation in the database.
// Collected intake fields are nullable; they fill in one PATCH at a time
// as the bot flow progresses.
type Conversation struct {
	ID              uuid.UUID          `db:"id"`
	VisitorID       string             `db:"visitor_id"`
	Status          ConversationStatus `db:"status"`
	EventType       *string            `db:"event_type"`
	EventDate       *string            `db:"event_date"`
	EventLocation   *string            `db:"event_location"`
	VisitorName     *string            `db:"visitor_name"`
	VisitorPhone    *string            `db:"visitor_phone"`
	AssignedAgentID *uuid.UUID         `db:"assigned_agent_id"`
	LastMessageAt   time.Time          `db:"last_message_at"`
	CreatedAt       time.Time          `db:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at"`
}

// Message is a single transcript entry. Messages are append-only: no
// edits, no deletes, ordered by creation.
type Message struct {
	ID             uuid.UUID  `db:"id"`
	ConversationID uuid.UUID  `db:"conversation_id"`
	SenderType     SenderType `db:"sender_type"`
	SenderID       string     `db:"sender_id"`
	SenderName     string     `db:"sender_name"`
	Content        string     `db:"content"`
	MessageType    string     `db:"message_type"`
	ClientNonce    *string    `db:"client_nonce"`
	CreatedAt      time.Time  `db:"created_at"`
}

// Lead is the sales lead created at the end of the bot intake flow.
// Phone holds ciphertext when an encryption key is configured, otherwise
// the plain digits.
type Lead struct {
	ID             uuid.UUID  `db:"id"`
	ConversationID *uuid.UUID `db:"conversation_id"`
	EventType      string     `db:"event_type"`
	Location       string     `db:"location"`
	Name           string     `db:"name"`
	Phone          []byte     `db:"phone"`
	Email          string     `db:"email"`
	LeadSource     string     `db:"lead_source"`
	ContactMethod  string     `db:"contact_method"`
	Message        string     `db:"message"`
	CreatedAt      time.Time  `db:"created_at"`
}

// Agent represents a live-chat agent account in the database.
type Agent struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	Name           string    `db:"name"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
