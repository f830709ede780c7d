package chatclient

import (
	"encoding/json"
	"sync"
	"time"

	"eventchat-backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Reconnect backoff bounds. Starts at the minimum and doubles per failed
// attempt up to the cap; a successful connect resets it.
const (
	reconnectMin = 1 * time.Second
	reconnectMax = 30 * time.Second
)

// SocketHandlers receives decoded realtime events. Callbacks run on the
// socket's read goroutine.
type SocketHandlers struct {
	OnMessage func(models.MessageEvent)
	OnTyping  func(models.TypingEvent)
}

// Socket is a reconnecting websocket client. It tracks which conversations
// the caller subscribed to and replays the subscriptions after a reconnect,
// since the server keeps no subscriber state across connections.
type Socket struct {
	url      string
	handlers SocketHandlers

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[uuid.UUID]struct{}
	closed bool

	done chan struct{}
}

// NewSocket creates a socket for the given websocket URL, e.g.
// "ws://localhost:8080/ws". Call Run to connect.
func NewSocket(url string, handlers SocketHandlers) *Socket {
	return &Socket{
		url:      url,
		handlers: handlers,
		subs:     map[uuid.UUID]struct{}{},
		done:     make(chan struct{}),
	}
}

// Run connects and keeps the socket alive until Close is called, redialing
// with exponential backoff after any failure. It blocks; run it on its own
// goroutine.
func (s *Socket) Run() {
	backoff := reconnectMin
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("chatclient: websocket dial failed")
			select {
			case <-s.done:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}
		backoff = reconnectMin

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conn = conn
		pending := make([]uuid.UUID, 0, len(s.subs))
		for id := range s.subs {
			pending = append(pending, id)
		}
		s.mu.Unlock()

		for _, id := range pending {
			s.sendFrame(models.ClientFrame{Type: models.FrameSubscribe, ConversationID: id})
		}

		s.readLoop(conn)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
	}
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}

		var probe struct {
			Type models.EventType `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			continue
		}
		switch probe.Type {
		case models.EventMessage:
			var ev models.MessageEvent
			if err := json.Unmarshal(data, &ev); err == nil && s.handlers.OnMessage != nil {
				s.handlers.OnMessage(ev)
			}
		case models.EventTyping:
			var ev models.TypingEvent
			if err := json.Unmarshal(data, &ev); err == nil && s.handlers.OnTyping != nil {
				s.handlers.OnTyping(ev)
			}
		}
	}
}

// Subscribe registers interest in a conversation. Safe to call before the
// socket is connected and safe to repeat.
func (s *Socket) Subscribe(conversationID uuid.UUID) {
	if conversationID == uuid.Nil {
		return
	}
	s.mu.Lock()
	_, already := s.subs[conversationID]
	s.subs[conversationID] = struct{}{}
	s.mu.Unlock()
	if !already {
		s.sendFrame(models.ClientFrame{Type: models.FrameSubscribe, ConversationID: conversationID})
	}
}

// SendTyping emits a best-effort typing ping. Failures are ignored; the
// next ping or the reconnect loop recovers.
func (s *Socket) SendTyping(conversationID uuid.UUID) {
	s.sendFrame(models.ClientFrame{Type: models.FrameTyping, ConversationID: conversationID})
}

func (s *Socket) sendFrame(frame models.ClientFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(frame); err != nil {
		log.Debug().Err(err).Str("frame", string(frame.Type)).Msg("chatclient: frame write failed")
	}
}

// Close stops the reconnect loop and closes the current connection.
func (s *Socket) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
