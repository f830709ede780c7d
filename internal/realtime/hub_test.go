package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"eventchat-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn records writes and can be told to fail.
type stubConn struct {
	mu      sync.Mutex
	frames  [][]byte
	failErr error
	closed  bool
}

func (c *stubConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *stubConn) lastFrame(t *testing.T) map[string]interface{} {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.frames)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(c.frames[len(c.frames)-1], &out))
	return out
}

func messageEvent(convID uuid.UUID) models.MessageEvent {
	return models.MessageEvent{
		Type:           models.EventMessage,
		ConversationID: convID,
		SenderType:     models.SenderAdmin,
		SenderID:       "agent-1",
		Content:        "hello",
		MessageID:      uuid.New(),
	}
}

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	h := NewHub()
	convID := uuid.New()

	visitor := &stubConn{}
	admin := &stubConn{}
	vs := h.Register(visitor, models.SenderVisitor)
	as := h.Register(admin, models.SenderAdmin)
	h.Subscribe(vs, convID)
	h.Subscribe(as, convID)

	h.BroadcastMessage(messageEvent(convID))

	assert.Equal(t, 1, visitor.frameCount())
	assert.Equal(t, 1, admin.frameCount())
	frame := visitor.lastFrame(t)
	assert.Equal(t, "message", frame["type"])
	assert.Equal(t, convID.String(), frame["conversationId"])
}

func TestHubFiltersByConversation(t *testing.T) {
	h := NewHub()
	convA, convB := uuid.New(), uuid.New()

	a := &stubConn{}
	b := &stubConn{}
	sa := h.Register(a, models.SenderVisitor)
	sb := h.Register(b, models.SenderVisitor)
	h.Subscribe(sa, convA)
	h.Subscribe(sb, convB)

	h.BroadcastMessage(messageEvent(convA))

	assert.Equal(t, 1, a.frameCount())
	assert.Equal(t, 0, b.frameCount(), "subscriber of another conversation receives nothing")
}

func TestHubSubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	convID := uuid.New()

	conn := &stubConn{}
	s := h.Register(conn, models.SenderVisitor)
	h.Subscribe(s, convID)
	h.Subscribe(s, convID)
	h.Subscribe(s, convID)

	require.Equal(t, 1, h.SubscriberCount(convID))
	h.BroadcastMessage(messageEvent(convID))
	assert.Equal(t, 1, conn.frameCount(), "duplicate subscriptions must not duplicate delivery")
}

func TestHubDropsSubscriberOnWriteError(t *testing.T) {
	h := NewHub()
	convID := uuid.New()

	bad := &stubConn{failErr: errors.New("broken pipe")}
	good := &stubConn{}
	sBad := h.Register(bad, models.SenderVisitor)
	sGood := h.Register(good, models.SenderAdmin)
	h.Subscribe(sBad, convID)
	h.Subscribe(sGood, convID)

	h.BroadcastMessage(messageEvent(convID))

	assert.Equal(t, 1, good.frameCount())
	assert.Equal(t, 1, h.SubscriberCount(convID), "failed connection is removed")
	assert.True(t, bad.closed)

	h.BroadcastTyping(models.NewTypingEvent(convID, models.SenderAdmin))
	assert.Equal(t, 2, good.frameCount())
	assert.Equal(t, 0, bad.frameCount())
}

func TestHubUnregisterRemovesAllSubscriptions(t *testing.T) {
	h := NewHub()
	convA, convB := uuid.New(), uuid.New()

	conn := &stubConn{}
	s := h.Register(conn, models.SenderAdmin)
	h.Subscribe(s, convA)
	h.Subscribe(s, convB)

	h.Unregister(s)

	assert.Equal(t, 0, h.SubscriberCount(convA))
	assert.Equal(t, 0, h.SubscriberCount(convB))
	assert.True(t, conn.closed)
}

func TestHubTypingEventShape(t *testing.T) {
	h := NewHub()
	convID := uuid.New()

	conn := &stubConn{}
	s := h.Register(conn, models.SenderVisitor)
	h.Subscribe(s, convID)

	h.BroadcastTyping(models.NewTypingEvent(convID, models.SenderAdmin))

	frame := conn.lastFrame(t)
	assert.Equal(t, "typing", frame["type"])
	assert.Equal(t, convID.String(), frame["conversationId"])
	assert.Equal(t, "admin", frame["senderType"])
	assert.NotContains(t, frame, "content")
}
