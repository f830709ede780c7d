package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/notify"
	"eventchat-backend/internal/realtime"
	"eventchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Sentinel errors handlers map onto HTTP statuses.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConversationClosed = errors.New("conversation is closed")
	ErrInvalidTransition  = errors.New("invalid conversation status transition")
)

// HandoffMessage is the system-authored transcript line appended when a
// hand-off is requested.
const HandoffMessage = "You're now connected! A member of our events team will be with you shortly."

// notifyTimeout bounds the background Slack ping so a slow webhook can't
// pile up goroutines.
const notifyTimeout = 10 * time.Second

// ConversationService owns the conversation lifecycle: creation, intake
// field updates, the append-only transcript, and the persisted status
// machine bot -> awaiting_agent -> live -> closed.
type ConversationService struct {
	store    store.Store
	hub      *realtime.Hub
	notifier notify.Notifier
}

// NewConversationService creates a new ConversationService.
func NewConversationService(st store.Store, hub *realtime.Hub, notifier notify.Notifier) *ConversationService {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &ConversationService{store: st, hub: hub, notifier: notifier}
}

func mapConversationToResponse(c *models.Conversation) *models.ConversationResponse {
	return &models.ConversationResponse{
		ID:              c.ID,
		VisitorID:       c.VisitorID,
		Status:          c.Status,
		EventType:       c.EventType,
		EventDate:       c.EventDate,
		EventLocation:   c.EventLocation,
		VisitorName:     c.VisitorName,
		VisitorPhone:    c.VisitorPhone,
		AssignedAgentID: c.AssignedAgentID,
		LastMessageAt:   c.LastMessageAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func mapMessageToResponse(m *models.Message) *models.MessageResponse {
	return &models.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderType:     m.SenderType,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		MessageType:    m.MessageType,
		CreatedAt:      m.CreatedAt,
	}
}

// CreateConversation creates a conversation in status bot.
func (s *ConversationService) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error) {
	if strings.TrimSpace(req.VisitorID) == "" {
		return nil, fmt.Errorf("%w: visitorId is required", ErrValidation)
	}
	arg := store.CreateConversationParams{ID: uuid.New(), VisitorID: req.VisitorID}
	if req.LastMessageAt != nil {
		arg.LastMessageAt = *req.LastMessageAt
	}
	conv, err := s.store.CreateConversation(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation in store: %w", err)
	}
	return mapConversationToResponse(conv), nil
}

// GetConversation retrieves a conversation by id.
func (s *ConversationService) GetConversation(ctx context.Context, id uuid.UUID) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapConversationToResponse(conv), nil
}

// UpdateConversationFields applies a partial intake field map. Closed
// conversations reject updates.
func (s *ConversationService) UpdateConversationFields(ctx context.Context, id uuid.UUID, req models.UpdateConversationRequest) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusClosed {
		return nil, ErrConversationClosed
	}
	updated, err := s.store.UpdateConversationFields(ctx, store.UpdateConversationFieldsParams{
		ID:            id,
		EventType:     req.EventType,
		EventDate:     req.EventDate,
		EventLocation: req.EventLocation,
		VisitorName:   req.VisitorName,
		VisitorPhone:  req.VisitorPhone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation fields: %w", err)
	}
	return mapConversationToResponse(updated), nil
}

// AppendMessage persists a message and broadcasts it to all subscribers of
// the conversation. A repeated clientNonce returns the original message
// without a second broadcast.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID uuid.UUID, req models.CreateMessageRequest) (*models.MessageResponse, error) {
	switch req.SenderType {
	case models.SenderSystem, models.SenderVisitor, models.SenderAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown senderType %q", ErrValidation, req.SenderType)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusClosed {
		return nil, ErrConversationClosed
	}

	msg, created, err := s.store.AppendMessage(ctx, store.AppendMessageParams{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderType:     req.SenderType,
		SenderID:       req.SenderID,
		SenderName:     req.SenderName,
		Content:        req.Content,
		MessageType:    messageType,
		ClientNonce:    req.ClientNonce,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	if created {
		s.hub.BroadcastMessage(models.NewMessageEvent(msg))
	}
	return mapMessageToResponse(msg), nil
}

// ListMessages returns a slice of the transcript in creation order.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) (*models.ListMessagesResponse, error) {
	limit, offset = clampPage(limit, offset, 200, 1000)
	msgs, err := s.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]models.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, *mapMessageToResponse(&msgs[i]))
	}
	return &models.ListMessagesResponse{Messages: out}, nil
}

// RequestLiveAgent moves a bot conversation to awaiting_agent, appends the
// system hand-off line and notifies the events team. Repeating the call on
// an already awaiting or live conversation is a no-op so a retried request
// can't duplicate the hand-off.
func (s *ConversationService) RequestLiveAgent(ctx context.Context, conversationID uuid.UUID) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	switch conv.Status {
	case models.StatusClosed:
		return nil, ErrConversationClosed
	case models.StatusAwaitingAgent, models.StatusLive:
		return mapConversationToResponse(conv), nil
	}

	updated, err := s.store.UpdateConversationStatus(ctx, conversationID, models.StatusAwaitingAgent, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation status: %w", err)
	}

	msg, created, err := s.store.AppendMessage(ctx, store.AppendMessageParams{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderType:     models.SenderSystem,
		SenderID:       "system",
		SenderName:     "System",
		Content:        HandoffMessage,
		MessageType:    models.MessageTypeText,
	})
	if err != nil {
		// The hand-off itself succeeded; the missing transcript line is
		// not worth failing the request over.
		log.Error().Err(err).Str("conv_id", conversationID.String()).Msg("failed to append hand-off system message")
	} else if created {
		s.hub.BroadcastMessage(models.NewMessageEvent(msg))
	}

	go func(conv models.Conversation) {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		s.notifier.HandoffRequested(nctx, &conv)
	}(*updated)

	return mapConversationToResponse(updated), nil
}

// ClaimConversation assigns an agent and moves awaiting_agent -> live.
func (s *ConversationService) ClaimConversation(ctx context.Context, conversationID, agentID uuid.UUID, agentName string) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusClosed {
		return nil, ErrConversationClosed
	}
	if conv.Status != models.StatusAwaitingAgent {
		return nil, fmt.Errorf("%w: cannot claim conversation in status %q", ErrInvalidTransition, conv.Status)
	}

	updated, err := s.store.UpdateConversationStatus(ctx, conversationID, models.StatusLive, &agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation status: %w", err)
	}

	content := fmt.Sprintf("%s has joined the conversation.", agentName)
	msg, created, err := s.store.AppendMessage(ctx, store.AppendMessageParams{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderType:     models.SenderSystem,
		SenderID:       "system",
		SenderName:     "System",
		Content:        content,
		MessageType:    models.MessageTypeText,
	})
	if err != nil {
		log.Error().Err(err).Str("conv_id", conversationID.String()).Msg("failed to append claim system message")
	} else if created {
		s.hub.BroadcastMessage(models.NewMessageEvent(msg))
	}

	return mapConversationToResponse(updated), nil
}

// CloseConversation marks a conversation closed. Closure is a status
// transition, not removal; closing twice is a no-op.
func (s *ConversationService) CloseConversation(ctx context.Context, conversationID uuid.UUID) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusClosed {
		return mapConversationToResponse(conv), nil
	}
	updated, err := s.store.UpdateConversationStatus(ctx, conversationID, models.StatusClosed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to close conversation: %w", err)
	}
	return mapConversationToResponse(updated), nil
}

// ListConversations returns conversations for the admin console, newest
// activity first, optionally filtered by status.
func (s *ConversationService) ListConversations(ctx context.Context, status *models.ConversationStatus, limit, offset int) (*models.ListConversationsResponse, error) {
	limit, offset = clampPage(limit, offset, 20, 100)
	convs, err := s.store.ListConversations(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations from store: %w", err)
	}
	out := make([]models.ConversationResponse, 0, len(convs))
	for i := range convs {
		out = append(out, *mapConversationToResponse(&convs[i]))
	}
	return &models.ListConversationsResponse{Conversations: out}, nil
}

// NotifyTyping fans a typing ping out to the conversation's subscribers.
// Typing is never persisted; receivers expire the indicator locally.
func (s *ConversationService) NotifyTyping(conversationID uuid.UUID, sender models.SenderType) {
	s.hub.BroadcastTyping(models.NewTypingEvent(conversationID, sender))
}

func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
