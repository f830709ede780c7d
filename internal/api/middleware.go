package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"eventchat-backend/internal/auth"
	"eventchat-backend/pkg/httputil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// JwtAuthMiddleware validates the agent JWT and injects the agent's id and
// name into the request context. The token normally arrives as a Bearer
// header; websocket upgrades can't set headers from the browser, so a
// ?token= query parameter is accepted as a fallback.
func JwtAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			claims := &auth.CustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				log.Debug().Err(err).Msg("invalid JWT presented")
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), auth.AgentIDKey, claims.AgentID)
			ctx = context.WithValue(ctx, auth.AgentNameKey, claims.AgentName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
