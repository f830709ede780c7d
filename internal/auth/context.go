package auth

import (
	"context"

	"github.com/google/uuid"
)

// --- Context Helper Functions ---

// GetAgentIDFromContext retrieves the AgentID (uuid.UUID) from the request
// context. Returns the ID and true if found, otherwise uuid.Nil and false.
func GetAgentIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	agentID, ok := ctx.Value(AgentIDKey).(uuid.UUID)
	return agentID, ok
}

// GetAgentNameFromContext retrieves the agent display name from the request
// context.
func GetAgentNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(AgentNameKey).(string)
	return name, ok
}
