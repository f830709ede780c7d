// Package realtime implements the per-process pub/sub channel that fans
// message and typing events out to websocket subscribers, keyed by
// conversation id. Delivery is best-effort: a failed write drops the
// connection, and there is no replay of missed events.
package realtime

import (
	"encoding/json"
	"sync"

	"eventchat-backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is the subset of *websocket.Conn the hub needs. Tests substitute
// stub connections.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is one connected client (visitor widget or admin console) and
// the set of conversations it listens to.
type Subscriber struct {
	conn  Conn
	role  models.SenderType
	convs map[uuid.UUID]struct{}
}

// Role returns the sender role the subscriber connected as.
func (s *Subscriber) Role() models.SenderType { return s.role }

// Hub is the connection registry. All state is guarded by one mutex; write
// volume is a handful of events per active conversation.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[uuid.UUID]map[*Subscriber]struct{}{}}
}

// Register wraps a new connection in a Subscriber. The subscriber receives
// nothing until it subscribes to a conversation.
func (h *Hub) Register(conn Conn, role models.SenderType) *Subscriber {
	return &Subscriber{conn: conn, role: role, convs: map[uuid.UUID]struct{}{}}
}

// Subscribe registers interest in a conversation. Subscribing to the same
// id twice is a no-op, not an error.
func (h *Hub) Subscribe(s *Subscriber, convID uuid.UUID) {
	if s == nil || convID == uuid.Nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := s.convs[convID]; ok {
		return
	}
	s.convs[convID] = struct{}{}
	if h.subs[convID] == nil {
		h.subs[convID] = map[*Subscriber]struct{}{}
	}
	h.subs[convID][s] = struct{}{}
}

// Unregister removes the subscriber from every conversation and closes the
// underlying connection.
func (h *Hub) Unregister(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	h.dropLocked(s)
	h.mu.Unlock()
}

// BroadcastMessage fans a message event out to all subscribers of its
// conversation, the sender included; receivers filter by senderType.
func (h *Hub) BroadcastMessage(ev models.MessageEvent) {
	h.publish(ev.ConversationID, ev)
}

// BroadcastTyping fans a typing ping out to all subscribers of its
// conversation.
func (h *Hub) BroadcastTyping(ev models.TypingEvent) {
	h.publish(ev.ConversationID, ev)
}

// SubscriberCount reports how many connections listen to a conversation.
func (h *Hub) SubscriberCount(convID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[convID])
}

func (h *Hub) publish(convID uuid.UUID, event interface{}) {
	if convID == uuid.Nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("conv_id", convID.String()).Msg("realtime: marshal event failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[convID] {
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("conv_id", convID.String()).Str("role", string(s.role)).
				Msg("realtime: broadcast failed, dropping connection")
			h.dropLocked(s)
		}
	}
}

func (h *Hub) dropLocked(s *Subscriber) {
	for convID := range s.convs {
		delete(h.subs[convID], s)
		if len(h.subs[convID]) == 0 {
			delete(h.subs, convID)
		}
	}
	s.convs = map[uuid.UUID]struct{}{}
	_ = s.conn.Close()
}
