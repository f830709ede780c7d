package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventchat-backend/internal/auth"
	"eventchat-backend/internal/config"
	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInvalidCredentials is returned for a wrong email or password. The two
// cases are indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles agent authentication. There is no signup surface;
// agents are provisioned via the seed config.
type AuthService struct {
	store store.Store
	cfg   *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(st store.Store, cfg *config.Config) *AuthService {
	return &AuthService{store: st, cfg: cfg}
}

// Login verifies an agent's credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	agent, err := s.store.GetAgentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch agent: %w", err)
	}
	if !auth.CheckPasswordHash(req.Password, agent.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(agent.ID, agent.Name, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &models.AuthResponse{
		AccessToken: token,
		Agent: models.AgentResponse{
			ID:    agent.ID,
			Email: agent.Email,
			Name:  agent.Name,
		},
	}, nil
}

// EnsureSeedAgent creates the configured seed agent if it does not exist.
// Called once at boot; a missing seed config is fine (no admin login).
func (s *AuthService) EnsureSeedAgent(ctx context.Context) error {
	if s.cfg.SeedAgentEmail == "" || s.cfg.SeedAgentPassword == "" {
		log.Info().Msg("no seed agent configured, skipping")
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(s.cfg.SeedAgentEmail))

	_, err := s.store.GetAgentByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check for seed agent: %w", err)
	}

	hash, err := auth.HashPassword(s.cfg.SeedAgentPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed agent password: %w", err)
	}
	agent := &models.Agent{
		ID:             uuid.New(),
		Email:          email,
		Name:           s.cfg.SeedAgentName,
		HashedPassword: hash,
	}
	if err := s.store.CreateAgent(ctx, agent); err != nil {
		return fmt.Errorf("failed to create seed agent: %w", err)
	}
	log.Info().Str("email", email).Msg("seed agent created")
	return nil
}
