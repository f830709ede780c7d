package services

import (
	"context"
	"sync"
	"testing"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/realtime"
	"eventchat-backend/internal/store"
	"eventchat-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordConn captures broadcast frames so tests can count deliveries.
type recordConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *recordConn) Close() error { return nil }

func (c *recordConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type recordNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
	done  chan struct{}
}

func newRecordNotifier() *recordNotifier {
	return &recordNotifier{done: make(chan struct{}, 1)}
}

func (n *recordNotifier) HandoffRequested(_ context.Context, conv *models.Conversation) {
	n.mu.Lock()
	n.calls = append(n.calls, conv.ID)
	n.mu.Unlock()
	select {
	case n.done <- struct{}{}:
	default:
	}
}

func newTestService(t *testing.T) (*ConversationService, *realtime.Hub, *recordNotifier) {
	t.Helper()
	hub := realtime.NewHub()
	notifier := newRecordNotifier()
	return NewConversationService(memory.NewMemoryStore(), hub, notifier), hub, notifier
}

func createConv(t *testing.T, svc *ConversationService) *models.ConversationResponse {
	t.Helper()
	conv, err := svc.CreateConversation(context.Background(), models.CreateConversationRequest{VisitorID: "visitor_abc_1"})
	require.NoError(t, err)
	return conv
}

func TestCreateConversationStartsInBot(t *testing.T) {
	svc, _, _ := newTestService(t)

	conv := createConv(t, svc)
	assert.Equal(t, models.StatusBot, conv.Status)
	assert.Equal(t, "visitor_abc_1", conv.VisitorID)
	assert.NotEqual(t, uuid.Nil, conv.ID)
	assert.False(t, conv.LastMessageAt.IsZero())
}

func TestCreateConversationRequiresVisitorID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateConversation(context.Background(), models.CreateConversationRequest{VisitorID: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateConversationFieldsIsPartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	eventType := "wedding"
	updated, err := svc.UpdateConversationFields(context.Background(), conv.ID, models.UpdateConversationRequest{EventType: &eventType})
	require.NoError(t, err)
	require.NotNil(t, updated.EventType)
	assert.Equal(t, "wedding", *updated.EventType)
	assert.Nil(t, updated.VisitorName, "untouched fields stay nil")

	name := "Jordan"
	updated, err = svc.UpdateConversationFields(context.Background(), conv.ID, models.UpdateConversationRequest{VisitorName: &name})
	require.NoError(t, err)
	require.NotNil(t, updated.EventType, "earlier fields survive later partial updates")
	assert.Equal(t, "Jordan", *updated.VisitorName)
}

func TestUpdateConversationFieldsRejectsClosed(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	_, err := svc.CloseConversation(context.Background(), conv.ID)
	require.NoError(t, err)

	name := "Jordan"
	_, err = svc.UpdateConversationFields(context.Background(), conv.ID, models.UpdateConversationRequest{VisitorName: &name})
	assert.ErrorIs(t, err, ErrConversationClosed)
}

func TestAppendMessageBroadcastsOnce(t *testing.T) {
	svc, hub, _ := newTestService(t)
	conv := createConv(t, svc)

	conn := &recordConn{}
	sub := hub.Register(conn, models.SenderAdmin)
	hub.Subscribe(sub, conv.ID)

	nonce := "nonce-1"
	req := models.CreateMessageRequest{
		SenderID:    "visitor_abc_1",
		SenderType:  models.SenderVisitor,
		Content:     "hello",
		ClientNonce: &nonce,
	}

	first, err := svc.AppendMessage(context.Background(), conv.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeText, first.MessageType, "message type defaults to text")

	// A retried request with the same nonce returns the original message
	// and does not broadcast again.
	second, err := svc.AppendMessage(context.Background(), conv.ID, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, conn.count())

	msgs, err := svc.ListMessages(context.Background(), conv.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs.Messages, 1)
}

func TestAppendMessageValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	_, err := svc.AppendMessage(context.Background(), conv.ID, models.CreateMessageRequest{
		SenderType: "bot",
		Content:    "hi",
	})
	assert.ErrorIs(t, err, ErrValidation, "unknown sender type")

	_, err = svc.AppendMessage(context.Background(), conv.ID, models.CreateMessageRequest{
		SenderType: models.SenderVisitor,
		Content:    "   ",
	})
	assert.ErrorIs(t, err, ErrValidation, "blank content")

	_, err = svc.AppendMessage(context.Background(), uuid.New(), models.CreateMessageRequest{
		SenderType: models.SenderVisitor,
		Content:    "hi",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppendMessageRejectsClosedConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	_, err := svc.CloseConversation(context.Background(), conv.ID)
	require.NoError(t, err)

	_, err = svc.AppendMessage(context.Background(), conv.ID, models.CreateMessageRequest{
		SenderType: models.SenderVisitor,
		Content:    "hello?",
	})
	assert.ErrorIs(t, err, ErrConversationClosed)
}

func TestRequestLiveAgent(t *testing.T) {
	svc, hub, notifier := newTestService(t)
	conv := createConv(t, svc)

	conn := &recordConn{}
	sub := hub.Register(conn, models.SenderVisitor)
	hub.Subscribe(sub, conv.ID)

	updated, err := svc.RequestLiveAgent(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingAgent, updated.Status)

	// System hand-off line is persisted and broadcast.
	msgs, err := svc.ListMessages(context.Background(), conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, models.SenderSystem, msgs.Messages[0].SenderType)
	assert.Equal(t, HandoffMessage, msgs.Messages[0].Content)
	assert.Equal(t, 1, conn.count())

	<-notifier.done
	notifier.mu.Lock()
	assert.Equal(t, []uuid.UUID{conv.ID}, notifier.calls)
	notifier.mu.Unlock()
}

func TestRequestLiveAgentIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	_, err := svc.RequestLiveAgent(context.Background(), conv.ID)
	require.NoError(t, err)

	again, err := svc.RequestLiveAgent(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingAgent, again.Status)

	msgs, err := svc.ListMessages(context.Background(), conv.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs.Messages, 1, "repeated request appends no second system line")
}

func TestRequestLiveAgentOnClosedConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	_, err := svc.CloseConversation(context.Background(), conv.ID)
	require.NoError(t, err)

	_, err = svc.RequestLiveAgent(context.Background(), conv.ID)
	assert.ErrorIs(t, err, ErrConversationClosed)
}

func TestClaimConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)
	agentID := uuid.New()

	_, err := svc.ClaimConversation(context.Background(), conv.ID, agentID, "Alex")
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot claim a bot conversation")

	_, err = svc.RequestLiveAgent(context.Background(), conv.ID)
	require.NoError(t, err)

	claimed, err := svc.ClaimConversation(context.Background(), conv.ID, agentID, "Alex")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, claimed.Status)
	require.NotNil(t, claimed.AssignedAgentID)
	assert.Equal(t, agentID, *claimed.AssignedAgentID)

	msgs, err := svc.ListMessages(context.Background(), conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs.Messages, 2)
	assert.Equal(t, "Alex has joined the conversation.", msgs.Messages[1].Content)

	_, err = svc.ClaimConversation(context.Background(), conv.ID, uuid.New(), "Riley")
	assert.ErrorIs(t, err, ErrInvalidTransition, "live conversations cannot be claimed twice")
}

func TestCloseConversationIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := createConv(t, svc)

	closed, err := svc.CloseConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)

	again, err := svc.CloseConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, again.Status)
}

func TestListConversationsFiltersByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := createConv(t, svc)
	createConv(t, svc)

	_, err := svc.RequestLiveAgent(context.Background(), a.ID)
	require.NoError(t, err)

	status := models.StatusAwaitingAgent
	list, err := svc.ListConversations(context.Background(), &status, 0, 0)
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, a.ID, list.Conversations[0].ID)

	all, err := svc.ListConversations(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all.Conversations, 2)
}

func TestNotifyTypingBroadcasts(t *testing.T) {
	svc, hub, _ := newTestService(t)
	conv := createConv(t, svc)

	conn := &recordConn{}
	sub := hub.Register(conn, models.SenderVisitor)
	hub.Subscribe(sub, conv.ID)

	svc.NotifyTyping(conv.ID, models.SenderAdmin)
	assert.Equal(t, 1, conn.count())

	msgs, err := svc.ListMessages(context.Background(), conv.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs.Messages, "typing is never persisted")
}
