package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Realtime events are a small discriminated union keyed by "type". Both
// directions validate at the boundary instead of passing raw maps around.

// EventType discriminates realtime event payloads.
type EventType string

const (
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
)

// MessageEvent is broadcast to every subscriber of a conversation when a
// message is appended to it.
type MessageEvent struct {
	Type           EventType  `json:"type"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderType     SenderType `json:"senderType"`
	SenderID       string     `json:"senderId"`
	SenderName     string     `json:"senderName,omitempty"`
	Content        string     `json:"content"`
	MessageID      uuid.UUID  `json:"messageId"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// TypingEvent is a best-effort "someone is typing" ping. It is never
// persisted; receivers expire the indicator themselves.
type TypingEvent struct {
	Type           EventType  `json:"type"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderType     SenderType `json:"senderType"`
}

// NewTypingEvent builds a typing broadcast payload.
func NewTypingEvent(conversationID uuid.UUID, sender SenderType) TypingEvent {
	return TypingEvent{Type: EventTyping, ConversationID: conversationID, SenderType: sender}
}

// NewMessageEvent builds the broadcast payload for a persisted message.
func NewMessageEvent(m *Message) MessageEvent {
	return MessageEvent{
		Type:           EventMessage,
		ConversationID: m.ConversationID,
		SenderType:     m.SenderType,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		MessageID:      m.ID,
		CreatedAt:      m.CreatedAt,
	}
}

// --- Inbound client frames ---

// ClientFrameType discriminates frames a websocket client may send.
type ClientFrameType string

const (
	FrameSubscribe ClientFrameType = "subscribe"
	FrameTyping    ClientFrameType = "typing"
)

// ClientFrame is a frame received from a websocket client. Only subscribe
// and typing are accepted; messages travel over the REST API so the store
// stays the single write path.
type ClientFrame struct {
	Type           ClientFrameType `json:"type"`
	ConversationID uuid.UUID       `json:"conversationId"`
}

// ErrUnknownFrame is returned for frames with an unrecognized type.
var ErrUnknownFrame = errors.New("unknown client frame type")

// ParseClientFrame decodes and validates an inbound websocket frame.
func ParseClientFrame(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, fmt.Errorf("malformed client frame: %w", err)
	}
	switch f.Type {
	case FrameSubscribe, FrameTyping:
	default:
		return ClientFrame{}, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
	if f.ConversationID == uuid.Nil {
		return ClientFrame{}, errors.New("client frame missing conversationId")
	}
	return f, nil
}
