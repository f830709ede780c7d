package models

import (
	"time"

	"github.com/google/uuid"
)

// Wire format note: the chat widget API uses camelCase JSON keys
// (visitorId, lastMessageAt, ...) because the deployed widgets already
// speak that shape.

// --- Request Structs ---

// CreateConversationRequest defines the body for creating a conversation.
// LastMessageAt is optional; the server stamps creation time when absent.
type CreateConversationRequest struct {
	VisitorID     string     `json:"visitorId"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// UpdateConversationRequest is a partial field map; only non-nil fields
// are written. There is no way to clear a field once collected.
type UpdateConversationRequest struct {
	EventType     *string `json:"eventType,omitempty"`
	EventDate     *string `json:"eventDate,omitempty"`
	EventLocation *string `json:"eventLocation,omitempty"`
	VisitorName   *string `json:"visitorName,omitempty"`
	VisitorPhone  *string `json:"visitorPhone,omitempty"`
}

// CreateMessageRequest defines the body for posting a message to a
// conversation. ClientNonce is an optional idempotency key: reposting the
// same nonce returns the original message instead of appending a duplicate.
type CreateMessageRequest struct {
	SenderID    string     `json:"senderId"`
	SenderType  SenderType `json:"senderType"`
	SenderName  string     `json:"senderName"`
	Content     string     `json:"content"`
	MessageType string     `json:"messageType"`
	ClientNonce *string    `json:"clientNonce,omitempty"`
}

// CreateLeadRequest defines the body for creating a lead. Email may be
// empty for chatbot-sourced leads; the server derives one from the phone
// digits.
type CreateLeadRequest struct {
	EventType      string     `json:"eventType"`
	Location       string     `json:"location"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email,omitempty"`
	LeadSource     string     `json:"leadSource"`
	ContactMethod  string     `json:"contactMethod"`
	Message        string     `json:"message,omitempty"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
}

// LoginRequest defines the expected body for the agent login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Response Structs ---

// ConversationResponse is the API representation of a conversation.
type ConversationResponse struct {
	ID              uuid.UUID          `json:"id"`
	VisitorID       string             `json:"visitorId"`
	Status          ConversationStatus `json:"status"`
	EventType       *string            `json:"eventType,omitempty"`
	EventDate       *string            `json:"eventDate,omitempty"`
	EventLocation   *string            `json:"eventLocation,omitempty"`
	VisitorName     *string            `json:"visitorName,omitempty"`
	VisitorPhone    *string            `json:"visitorPhone,omitempty"`
	AssignedAgentID *uuid.UUID         `json:"assignedAgentId,omitempty"`
	LastMessageAt   time.Time          `json:"lastMessageAt"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// MessageResponse is the API representation of a message.
type MessageResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderType     SenderType `json:"senderType"`
	SenderID       string     `json:"senderId"`
	SenderName     string     `json:"senderName"`
	Content        string     `json:"content"`
	MessageType    string     `json:"messageType"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// LeadResponse is the API representation of a lead. Phone is returned in
// plaintext only to authenticated admin readers; the create response echoes
// the submitted value.
type LeadResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
	EventType      string     `json:"eventType"`
	Location       string     `json:"location"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	LeadSource     string     `json:"leadSource"`
	ContactMethod  string     `json:"contactMethod"`
	Message        string     `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ListConversationsResponse wraps the admin console conversation list.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// ListMessagesResponse wraps a conversation transcript.
type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// AgentResponse defines the agent information returned by the API.
type AgentResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	Agent       AgentResponse `json:"agent"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
