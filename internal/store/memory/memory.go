// Package memory provides an in-memory store.Store used for development
// without a database and for tests. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure MemoryStore implements store.Store
var _ store.Store = (*MemoryStore)(nil)

// MemoryStore holds all data in memory.
type MemoryStore struct {
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]*models.Message // keyed by conversation id, append order
	nonces        map[uuid.UUID]map[string]*models.Message
	leads         map[uuid.UUID]*models.Lead
	agents        map[string]*models.Agent // keyed by email

	convMu  sync.RWMutex
	leadMu  sync.RWMutex
	agentMu sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]*models.Message),
		nonces:        make(map[uuid.UUID]map[string]*models.Message),
		leads:         make(map[uuid.UUID]*models.Lead),
		agents:        make(map[string]*models.Agent),
	}
}

func (m *MemoryStore) CreateConversation(_ context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	m.convMu.Lock()
	defer m.convMu.Unlock()

	now := time.Now().UTC()
	lastMessageAt := arg.LastMessageAt
	if lastMessageAt.IsZero() {
		lastMessageAt = now
	}
	conv := &models.Conversation{
		ID:            arg.ID,
		VisitorID:     arg.VisitorID,
		Status:        models.StatusBot,
		LastMessageAt: lastMessageAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.conversations[conv.ID] = conv
	out := *conv
	return &out, nil
}

func (m *MemoryStore) GetConversationByID(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.convMu.RLock()
	defer m.convMu.RUnlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := *conv
	return &out, nil
}

func (m *MemoryStore) UpdateConversationFields(_ context.Context, arg store.UpdateConversationFieldsParams) (*models.Conversation, error) {
	m.convMu.Lock()
	defer m.convMu.Unlock()

	conv, exists := m.conversations[arg.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if arg.EventType != nil {
		conv.EventType = arg.EventType
	}
	if arg.EventDate != nil {
		conv.EventDate = arg.EventDate
	}
	if arg.EventLocation != nil {
		conv.EventLocation = arg.EventLocation
	}
	if arg.VisitorName != nil {
		conv.VisitorName = arg.VisitorName
	}
	if arg.VisitorPhone != nil {
		conv.VisitorPhone = arg.VisitorPhone
	}
	conv.UpdatedAt = time.Now().UTC()
	out := *conv
	return &out, nil
}

func (m *MemoryStore) UpdateConversationStatus(_ context.Context, id uuid.UUID, status models.ConversationStatus, agentID *uuid.UUID) (*models.Conversation, error) {
	m.convMu.Lock()
	defer m.convMu.Unlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	conv.Status = status
	if agentID != nil {
		conv.AssignedAgentID = agentID
	}
	conv.UpdatedAt = time.Now().UTC()
	out := *conv
	return &out, nil
}

func (m *MemoryStore) ListConversations(_ context.Context, status *models.ConversationStatus, limit, offset int) ([]models.Conversation, error) {
	m.convMu.RLock()
	defer m.convMu.RUnlock()

	var result []models.Conversation
	for _, conv := range m.conversations {
		if status != nil && conv.Status != *status {
			continue
		}
		result = append(result, *conv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, arg store.AppendMessageParams) (*models.Message, bool, error) {
	m.convMu.Lock()
	defer m.convMu.Unlock()

	conv, exists := m.conversations[arg.ConversationID]
	if !exists {
		return nil, false, store.ErrNotFound
	}

	if arg.ClientNonce != nil {
		if seen, ok := m.nonces[arg.ConversationID][*arg.ClientNonce]; ok {
			out := *seen
			return &out, false, nil
		}
	}

	msg := &models.Message{
		ID:             arg.ID,
		ConversationID: arg.ConversationID,
		SenderType:     arg.SenderType,
		SenderID:       arg.SenderID,
		SenderName:     arg.SenderName,
		Content:        arg.Content,
		MessageType:    arg.MessageType,
		ClientNonce:    arg.ClientNonce,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[arg.ConversationID] = append(m.messages[arg.ConversationID], msg)
	if arg.ClientNonce != nil {
		if m.nonces[arg.ConversationID] == nil {
			m.nonces[arg.ConversationID] = make(map[string]*models.Message)
		}
		m.nonces[arg.ConversationID][*arg.ClientNonce] = msg
	}

	conv.LastMessageAt = msg.CreatedAt
	conv.UpdatedAt = msg.CreatedAt

	out := *msg
	return &out, true, nil
}

func (m *MemoryStore) ListMessages(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	m.convMu.RLock()
	defer m.convMu.RUnlock()

	if _, exists := m.conversations[conversationID]; !exists {
		return nil, store.ErrNotFound
	}
	msgs := m.messages[conversationID]
	if offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	result := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, *msg)
	}
	return result, nil
}

func (m *MemoryStore) CreateLead(_ context.Context, arg store.CreateLeadParams) (*models.Lead, error) {
	m.leadMu.Lock()
	defer m.leadMu.Unlock()

	lead := &models.Lead{
		ID:             arg.ID,
		ConversationID: arg.ConversationID,
		EventType:      arg.EventType,
		Location:       arg.Location,
		Name:           arg.Name,
		Phone:          arg.Phone,
		Email:          arg.Email,
		LeadSource:     arg.LeadSource,
		ContactMethod:  arg.ContactMethod,
		Message:        arg.Message,
		CreatedAt:      time.Now().UTC(),
	}
	m.leads[lead.ID] = lead
	out := *lead
	return &out, nil
}

func (m *MemoryStore) GetAgentByEmail(_ context.Context, email string) (*models.Agent, error) {
	m.agentMu.RLock()
	defer m.agentMu.RUnlock()

	agent, exists := m.agents[email]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := *agent
	return &out, nil
}

func (m *MemoryStore) CreateAgent(_ context.Context, agent *models.Agent) error {
	m.agentMu.Lock()
	defer m.agentMu.Unlock()

	now := time.Now().UTC()
	stored := *agent
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.agents[agent.Email] = &stored
	return nil
}
