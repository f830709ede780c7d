package api

import (
	"net/http"
	"time"

	"eventchat-backend/internal/config"
	"eventchat-backend/internal/handlers"
	"eventchat-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Config        *config.Config
	Conversations *handlers.ConversationHandlers
	Leads         *handlers.LeadHandlers
	Auth          *handlers.AuthHandlers
	WS            *handlers.WSHandlers
}

// NewRouter creates the main application router with middleware and routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", deps.Auth.HandleLogin)

		// Visitor widget surface. Unauthenticated: visitors are anonymous
		// and conversation ids are unguessable.
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", deps.Conversations.HandleCreateConversation)
			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/", deps.Conversations.HandleGetConversation)
				r.Patch("/", deps.Conversations.HandleUpdateConversation)
				r.Post("/messages", deps.Conversations.HandleAppendMessage)
				r.Get("/messages", deps.Conversations.HandleListMessages)
				r.Post("/request-live-agent", deps.Conversations.HandleRequestLiveAgent)
			})
		})

		r.Post("/leads", deps.Leads.HandleCreateLead)

		// Admin console surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))
			r.Get("/conversations", deps.Conversations.HandleListConversations)
			r.Post("/conversations/{conversationID}/claim", deps.Conversations.HandleClaimConversation)
			r.Post("/conversations/{conversationID}/close", deps.Conversations.HandleCloseConversation)
		})
	})

	r.Get("/ws", deps.WS.HandleVisitorSocket)
	r.With(JwtAuthMiddleware(deps.Config.JWTSecret)).Get("/ws/admin", deps.WS.HandleAdminSocket)

	return r
}
