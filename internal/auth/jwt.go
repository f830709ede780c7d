package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	AgentIDKey   contextKey = "agentID"
	AgentNameKey contextKey = "agentName"
)

// --- JWT Claims ---

// CustomClaims includes standard JWT claims plus our custom ones.
// Match this with the claims struct in api/middleware.go
type CustomClaims struct {
	AgentID   uuid.UUID `json:"agent_id"`
	AgentName string    `json:"agent_name"`
	jwt.RegisteredClaims
}

// NewAccessToken generates a new JWT access token for an agent.
func NewAccessToken(agentID uuid.UUID, agentName, jwtSecret string, expiration time.Duration) (string, error) {
	claims := CustomClaims{
		AgentID:   agentID,
		AgentName: agentName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "eventchat-backend",
			Subject:   agentID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Error().Err(err).Str("agent_id", agentID.String()).Msg("error signing JWT token")
		return "", err
	}
	return signedToken, nil
}
