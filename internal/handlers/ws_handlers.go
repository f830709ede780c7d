package handlers

import (
	"errors"
	"net/http"

	"eventchat-backend/internal/models"
	"eventchat-backend/internal/realtime"
	"eventchat-backend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// maxFrameBytes bounds inbound control frames. Clients only send small
// subscribe/typing frames; message content goes over REST.
const maxFrameBytes = 4096

// WSHandlers upgrades HTTP connections to websockets and runs the per
// connection read loop.
type WSHandlers struct {
	hub     *realtime.Hub
	convSvc *services.ConversationService

	upgrader websocket.Upgrader
}

// NewWSHandlers creates a new WSHandlers instance.
func NewWSHandlers(hub *realtime.Hub, convSvc *services.ConversationService) *WSHandlers {
	return &WSHandlers{
		hub:     hub,
		convSvc: convSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced by the CORS middleware on the
			// REST surface; the widget embeds on arbitrary customer pages.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleVisitorSocket handles GET /ws. An optional ?conversationId query
// parameter subscribes the connection immediately so a reconnecting widget
// misses as little as possible.
func (h *WSHandlers) HandleVisitorSocket(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, models.SenderVisitor)
}

// HandleAdminSocket handles GET /ws/admin. The route sits behind the JWT
// middleware; by the time we get here the caller is an authenticated agent.
func (h *WSHandlers) HandleAdminSocket(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, models.SenderAdmin)
}

func (h *WSHandlers) serve(w http.ResponseWriter, r *http.Request, role models.SenderType) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		log.Warn().Err(err).Str("role", string(role)).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	sub := h.hub.Register(conn, role)
	defer h.hub.Unregister(sub)

	if raw := r.URL.Query().Get("conversationId"); raw != "" {
		if convID, err := uuid.Parse(raw); err == nil {
			h.hub.Subscribe(sub, convID)
		}
	}

	h.readLoop(conn, sub, role)
}

// readLoop consumes client frames until the connection errors or closes.
// Malformed frames are logged and skipped rather than killing the
// connection, so one bad widget build can't flap every socket it opens.
func (h *WSHandlers) readLoop(conn *websocket.Conn, sub *realtime.Subscriber, role models.SenderType) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("role", string(role)).Msg("websocket read failed")
			}
			return
		}

		frame, err := models.ParseClientFrame(data)
		if err != nil {
			if !errors.Is(err, models.ErrUnknownFrame) {
				log.Debug().Err(err).Str("role", string(role)).Msg("dropping malformed client frame")
			}
			continue
		}

		switch frame.Type {
		case models.FrameSubscribe:
			h.hub.Subscribe(sub, frame.ConversationID)
		case models.FrameTyping:
			h.convSvc.NotifyTyping(frame.ConversationID, role)
		}
	}
}
